package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/trakfit-api/internal/service"
)

func newProbeRouter(authSvc *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", JWT(authSvc), func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	authSvc := service.NewAuthService(nil, nil, nil, validator.New(), zap.NewNop(), service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour})
	r := newProbeRouter(authSvc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsMalformedHeader(t *testing.T) {
	authSvc := service.NewAuthService(nil, nil, nil, validator.New(), zap.NewNop(), service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour})
	r := newProbeRouter(authSvc)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Token abcdef")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsGarbageToken(t *testing.T) {
	authSvc := service.NewAuthService(nil, nil, nil, validator.New(), zap.NewNop(), service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour})
	r := newProbeRouter(authSvc)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
