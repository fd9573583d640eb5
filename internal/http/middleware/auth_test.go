package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studycards/internal/identity"
	"github.com/yungbote/studycards/internal/platform/ctxutil"
	"github.com/yungbote/studycards/internal/platform/logger"
)

func authRouter(t *testing.T) (*gin.Engine, *identity.JWTProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	provider, err := identity.NewJWTProvider("test-secret", "")
	require.NoError(t, err)
	am := NewAuthMiddleware(logger.Nop(), provider)

	echo := func(c *gin.Context) {
		c.String(http.StatusOK, "owner=%s", identity.FromContext(c.Request.Context()))
	}
	r := gin.New()
	r.GET("/optional", am.OptionalAuth(), echo)
	r.GET("/required", am.RequireAuth(), echo)
	return r, provider
}

func call(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestOptionalAuth(t *testing.T) {
	r, provider := authRouter(t)
	token, err := provider.Issue("alice", time.Hour)
	require.NoError(t, err)

	rec := call(r, "/optional", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner=", rec.Body.String())

	rec = call(r, "/optional", "Bearer "+token)
	assert.Equal(t, "owner=alice", rec.Body.String())

	rec = call(r, "/optional", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"invalid or expired token","code":"unauthorized"}}`, rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	r, provider := authRouter(t)
	token, err := provider.Issue("bob", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(r, "/required", "").Code)

	rec := call(r, "/required?token="+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner=bob", rec.Body.String())
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Body.String())
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}
