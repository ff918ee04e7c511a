package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func echoBodyRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodySizeLimitMiddleware(limit))
	router.POST("/upload", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(body))
	})
	router.GET("/upload", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodySizeLimitMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		chunked  bool
		expected int
	}{
		{name: "within limit", body: "hello", expected: http.StatusOK},
		{name: "declared length over limit", body: strings.Repeat("x", 32), expected: http.StatusRequestEntityTooLarge},
		{name: "chunked body over limit", body: strings.Repeat("x", 32), chunked: true, expected: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}

			w := serve(echoBodyRouter(16), req)

			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestBodySizeLimitMiddleware_SkipsSafeMethods(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/upload", strings.NewReader(strings.Repeat("x", 64)))

	w := serve(echoBodyRouter(16), req)

	assert.Equal(t, http.StatusOK, w.Code)
}
