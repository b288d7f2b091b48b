package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
	"github.com/noah-isme/trakfit-api/pkg/response"
)

// RequireStaff restricts a route to staff and superuser accounts.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.Staff && !claims.Superuser {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStudent restricts a route to non-staff student accounts.
func RequireStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.Staff || claims.Superuser {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "student account required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
