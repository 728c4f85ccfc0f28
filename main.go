package main

import (
	"github.com/hypnotize1/blog-api/config"
	"github.com/hypnotize1/blog-api/models"
	"github.com/hypnotize1/blog-api/routes"
	"github.com/hypnotize1/blog-api/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{})

	blobs, err := utils.NewBlobStore(cfg.UploadDir, cfg.MaxUploadMB)
	if err != nil {
		utils.Sugar.Fatalf("blob store init failed: %v", err)
	}

	rdb := utils.NewRedisClient(cfg)

	r := routes.SetupRouter(db, rdb, blobs)

	utils.Sugar.Infof("starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
