package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hypnotize1/blog-api/models"
	"github.com/hypnotize1/blog-api/utils"
)

// ContextUserKey is the gin context key under which AuthRequired stores the
// resolved user.
const ContextUserKey = "currentUser"

// AuthRequired verifies the bearer token and resolves its user against the
// database (exactly one read per request, no caching of verified identities).
// On success the full user record is attached to the request context.
func AuthRequired(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx.GetHeader("Authorization"))
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, "you are not logged in, please log in to get access")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			// Malformed, bad signature, and expired all collapse into one
			// uniform unauthorized answer.
			utils.Error(ctx, http.StatusUnauthorized, "invalid or expired token")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Error(ctx, http.StatusUnauthorized, "the user belonging to this token no longer exists")
			} else {
				utils.Error(ctx, http.StatusInternalServerError, "internal server error")
			}
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserKey, user)
		ctx.Next()
	}
}

// CurrentUser returns the user attached by AuthRequired.
func CurrentUser(ctx *gin.Context) (models.User, bool) {
	value, exists := ctx.Get(ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
