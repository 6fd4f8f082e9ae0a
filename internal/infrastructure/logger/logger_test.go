package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		l, err := New(&Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)
		l.Info("hello")
		require.NoError(t, l.Sync())
		assert.FileExists(t, path)
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
		assert.Error(t, err)
	})

	t.Run("environment", func(t *testing.T) {
		l, err := NewForEnvironment("production")
		require.NoError(t, err)
		assert.NotNil(t, l)
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	ctx, l := WithProductGID(ctx, FromContext(ctx), "gid://shopify/Product/1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "gid://shopify/Product/1", GetProductGID(ctx))

	l.Info("rebuild")
	L(ctx).Info("push")

	entries := recorded.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		fields := e.ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "gid://shopify/Product/1", fields["product_gid"])
	}

	assert.NotNil(t, FromContext(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	r := gin.New()
	r.Use(GinMiddleware(base), Recovery(base))
	r.GET("/ok", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c.Request.Context()))
		c.Status(http.StatusOK)
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	t.Run("propagates incoming request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "abc")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	})

	t.Run("generates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("client errors log at warn", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
		logs := recorded.FilterMessage("HTTP Request").FilterField(zap.Int("status", http.StatusNotFound)).All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("panics become 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
	})
}

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("errors are logged with request id", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, time.Second)
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")

		gl.Trace(ctx, time.Now(), sql, errors.New("connection reset"))

		logs := recorded.FilterMessage("SQL error").All()
		require.Len(t, logs, 1)
		assert.Equal(t, "req-9", logs[0].ContextMap()["request_id"])
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, time.Second)

		gl.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, time.Millisecond)

		gl.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
		assert.Equal(t, 1, recorded.FilterMessage("Slow SQL").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info, 0).LogMode(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), sql, errors.New("x"))
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("info level logs every statement", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info, 0)

		gl.Trace(context.Background(), time.Now(), sql, nil)
		assert.Equal(t, 1, recorded.FilterMessage("SQL").Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
