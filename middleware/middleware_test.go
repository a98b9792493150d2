package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitestats/api/models"
	"sitestats/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func protectedRouter(tokens *utils.TokenIssuer, apiKey string) *gin.Engine {
	r := gin.New()
	r.GET("/protected", AuthRequired(tokens, apiKey, quietLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operator": c.GetInt(ContextOperatorID)})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", time.Hour)
	token, err := tokens.Generate(&models.Operator{ID: 9, Email: "ops@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		apiKey string
		setup  func(r *http.Request)
		want   int
	}{
		{"no credentials", "key", func(r *http.Request) {}, http.StatusUnauthorized},
		{"api key", "key", func(r *http.Request) { r.Header.Set("X-API-KEY", "key") }, http.StatusOK},
		{"wrong api key", "key", func(r *http.Request) { r.Header.Set("X-API-KEY", "nope") }, http.StatusUnauthorized},
		{"empty configured key never matches", "", func(r *http.Request) { r.Header.Set("X-API-KEY", "") }, http.StatusUnauthorized},
		{"bearer token", "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie token", "", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, http.StatusOK},
		{"garbage token", "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			protectedRouter(tokens, tt.apiKey).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"*"}))
	r.POST("/api/track", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/track", nil)
	req.Header.Set("Origin", "https://customer.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSMiddleware_RestrictedOrigins(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://dashboard.example"}))
	r.GET("/api/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://dashboard.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
