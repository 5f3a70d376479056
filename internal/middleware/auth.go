package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/blog-api/internal/models"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/response"
)

// ContextUserKey is where the route guard stores the authenticated claims.
const ContextUserKey = "auth_user"

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.JWTClaims, error)
}

// Auth guards routes behind a Bearer access token.
func Auth(auth accessTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header missing"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateAccessToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentUser returns the claims stored by Auth, if any.
func CurrentUser(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
