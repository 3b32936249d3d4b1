package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"companion/internal/models"
	"companion/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeAuth struct {
	service.AuthService
	claims *models.Claims
	err    error
}

func (f *fakeAuth) ParseToken(context.Context, string) (*models.Claims, error) {
	return f.claims, f.err
}

func newRouter(auth service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", AuthMiddleware(auth, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64(ContextUserID), "username": c.GetString(ContextUsername)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	ok := &fakeAuth{claims: &models.Claims{UserID: 3, Username: "sam"}}

	tests := []struct {
		name   string
		auth   *fakeAuth
		header string
		status int
		body   string
	}{
		{name: "missing header", auth: ok, status: http.StatusUnauthorized, body: "Authorization header required"},
		{name: "wrong scheme", auth: ok, header: "Basic abc", status: http.StatusUnauthorized, body: "must be Bearer"},
		{name: "expired", auth: &fakeAuth{err: service.ErrTokenExpired}, header: "Bearer x", status: http.StatusUnauthorized, body: "Token expired"},
		{name: "revoked", auth: &fakeAuth{err: service.ErrTokenRevoked}, header: "Bearer x", status: http.StatusUnauthorized, body: "Token revoked"},
		{name: "invalid", auth: &fakeAuth{err: service.ErrInvalidToken}, header: "Bearer x", status: http.StatusUnauthorized, body: "Invalid token"},
		{name: "valid", auth: ok, header: "Bearer good", status: http.StatusOK, body: `"username":"sam"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			newRouter(tt.auth).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(&fakeAuth{claims: &models.Claims{UserID: 1}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORS([]string{"https://app.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	open := gin.New()
	open.Use(CORS([]string{"*"}))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
