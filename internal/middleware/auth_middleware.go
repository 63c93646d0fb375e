package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/logger"
)

const (
	ContextKeyUserID   = "user_id"
	ContextKeyAuthUser = "auth_user"
)

// UserLookup is the part of the user repository the auth middleware needs.
type UserLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type AuthConfig struct {
	Secret string
	Issuer string
}

// AuthRequired verifies the bearer token, loads the user it names and stores
// an AuthUser in the context. Tokens are issued elsewhere.
func AuthRequired(cfg AuthConfig, users UserLookup, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponseWithMessage(c, "Authorization header required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
			utils.UnauthorizedResponseWithMessage(c, "Bearer token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, cfg.Secret, cfg.Issuer)
		if err != nil {
			utils.UnauthorizedResponseWithMessage(c, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.UnauthorizedResponseWithMessage(c, "Invalid user ID in token")
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				utils.UnauthorizedResponseWithMessage(c, utils.ErrUserNotFound)
			} else {
				log.WithError(err).Error("Failed to load authenticated user")
				utils.InternalServerErrorResponse(c)
			}
			c.Abort()
			return
		}

		if !user.IsActive {
			utils.ForbiddenResponse(c, "Account is deactivated")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyAuthUser, user.ToAuthUser())
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.ContextKeyUserID, userID))

		c.Next()
	}
}

// GetAuthUser returns the user set by AuthRequired.
func GetAuthUser(c *gin.Context) (*models.AuthUser, bool) {
	v, ok := c.Get(ContextKeyAuthUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.AuthUser)
	return user, ok && user != nil
}

func GetUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(ContextKeyUserID)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}
