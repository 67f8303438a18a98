package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestRouter(logger *zap.SugaredLogger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(logger))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	r.GET("/pullRequest/byBuild/:build_id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.POST("/github/webhook", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored"})
	})
	r.GET("/server-error", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
	return r
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		path          string
		expectedLevel zapcore.Level
	}{
		{name: "successful request", method: http.MethodGet, path: "/test", expectedLevel: zapcore.InfoLevel},
		{
			name:          "client error",
			method:        http.MethodGet,
			path:          "/pullRequest/byBuild/7",
			expectedLevel: zapcore.WarnLevel,
		},
		{name: "server error", method: http.MethodGet, path: "/server-error", expectedLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observedLogger()
			router := setupTestRouter(logger)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			entries := logs.FilterMessage("HTTP request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.expectedLevel, entries[0].Level)
			assert.Equal(t, int64(w.Code), entries[0].ContextMap()["status"])
		})
	}
}

func TestLogger_LogsRequestDetails(t *testing.T) {
	logger, logs := observedLogger()
	router := setupTestRouter(logger)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pullRequest/byBuild/7?verbose=1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/pullRequest/byBuild/7", fields["path"])
	assert.Equal(t, "/pullRequest/byBuild/:build_id", fields["route"])
	assert.Equal(t, "verbose=1", fields["query"])
	assert.Contains(t, fields, "latency_ms")
	assert.Contains(t, fields, "size")
	assert.NotContains(t, fields, "github_event")
}

func TestLogger_LogsGitHubDelivery(t *testing.T) {
	logger, logs := observedLogger()
	router := setupTestRouter(logger)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/github/webhook", nil)
	req.Header.Set(HeaderGitHubEvent, "check_suite")
	req.Header.Set(HeaderGitHubDelivery, "72d3162e-cc78-11e3-81ab-4c9367dc0958")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "check_suite", fields["github_event"])
	assert.Equal(t, "72d3162e-cc78-11e3-81ab-4c9367dc0958", fields["github_delivery"])
	assert.NotContains(t, fields, "route")
}
