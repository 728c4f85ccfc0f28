package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hypnotize1/blog-api/config"
	"github.com/hypnotize1/blog-api/controllers"
	"github.com/hypnotize1/blog-api/middleware"
	"github.com/hypnotize1/blog-api/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, rdb *redis.Client, blobs *utils.BlobStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestLogger(utils.Logger))
	r.Use(utils.Recovery(utils.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static(utils.URLPrefix, blobs.Root())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, http.StatusOK, gin.H{"status": "ok"})
	})

	jwtTTL := time.Duration(cfg.JWTExpireHours) * time.Hour
	authController := controllers.NewAuthController(db, cfg.JWTSecret, jwtTTL)
	postController := controllers.NewPostController(db, blobs)
	commentController := controllers.NewCommentController(db)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(rdb, cfg.RateLimitPerMinute))
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)

	r.GET("/posts", postController.ListPosts)
	r.GET("/posts/:id", postController.GetPost)
	r.GET("/comments/post/:postId", commentController.ListCommentsByPost)

	protected := r.Group("")
	protected.Use(middleware.AuthRequired(db, cfg.JWTSecret))
	protected.POST("/posts", postController.CreatePost)
	protected.PATCH("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/comments", commentController.CreateComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "route not found")
	})

	return r
}
