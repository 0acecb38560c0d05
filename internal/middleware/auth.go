package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/pkg/jwt"
	"github.com/lingokit/core/internal/pkg/response"
	"gorm.io/gorm"
)

const ContextKeyUserID = "user_id"

var errInvalidToken = errors.New("invalid token")

// Auth returns a middleware that enforces JWT authentication for admin routes.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := ValidateToken(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// ValidateToken validates a JWT and returns the authenticated user id.
func ValidateToken(db *gorm.DB, rawToken string) (string, error) {
	if rawToken == "" {
		return "", errInvalidToken
	}
	claims, err := jwt.Parse(rawToken)
	if err != nil {
		return "", err
	}
	var count int64
	if err := db.Model(&models.UserModel{}).Where("id = ?", claims.UserID).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return "", errInvalidToken
	}
	return claims.UserID, nil
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		return strings.TrimSpace(header)
	}
	return c.Query("token")
}
