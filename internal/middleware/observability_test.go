package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/getmentor/getmentor-edge/pkg/logger"
	"github.com/getmentor/getmentor-edge/pkg/metrics"
)

func TestObservabilityMiddleware_RecordsRouteTemplate(t *testing.T) {
	router := gin.New()
	router.Use(ObservabilityMiddleware())
	router.GET("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	counter := metrics.HTTPRequestTotal.WithLabelValues("GET", "/items/:id", "200")
	before := testutil.ToFloat64(counter)

	serve(router, httptest.NewRequest(http.MethodGet, "/items/42", http.NoBody))
	serve(router, httptest.NewRequest(http.MethodGet, "/items/43", http.NoBody))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestObservabilityMiddleware_LogsRedactedQueryOnError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	router := gin.New()
	router.Use(ObservabilityMiddleware())
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/missing?page=2&token=hunter2", http.NoBody))

	entries := logs.FilterMessage("HTTP request client error").All()
	require.Len(t, entries, 1)
	query, ok := entries[0].ContextMap()["query_params"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"page": "2"}, query)
	assert.Equal(t, "/missing", entries[0].ContextMap()["path"])
}
