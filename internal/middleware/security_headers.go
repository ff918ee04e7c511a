package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/getmentor/getmentor-edge/pkg/logger"
	"github.com/getmentor/getmentor-edge/pkg/metrics"
)

// EnvironmentSource reports the deployment mode. It is queried on every
// request, never cached.
type EnvironmentSource interface {
	IsProduction() bool
}

const (
	// ContentSecurityPolicy is sent verbatim on every production response
	ContentSecurityPolicy = "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.jsdelivr.net https://www.googletagmanager.com; " +
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
		"img-src 'self' data: https: blob:; " +
		"font-src 'self' data: https://fonts.gstatic.com; " +
		"connect-src 'self'; " +
		"frame-ancestors 'self';"

	// StrictTransportSecurity is only sent when the request arrived over HTTPS
	StrictTransportSecurity = "max-age=31536000; includeSubDomains"
)

type headerValue struct {
	name  string
	value string
}

// productionHeaders is applied in order; HSTS is handled separately.
var productionHeaders = []headerValue{
	{"X-Frame-Options", "SAMEORIGIN"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Content-Security-Policy", ContentSecurityPolicy},
}

// ApplySecurityHeaders writes the production header set into h, overwriting
// prior values for the same names. Other headers are left alone.
func ApplySecurityHeaders(h http.Header, secure bool) {
	for _, hv := range productionHeaders {
		h.Set(hv.name, hv.value)
	}
	if secure {
		h.Set("Strict-Transport-Security", StrictTransportSecurity)
	}
}

// SecurityHeadersMiddleware runs the rest of the chain first and then, in
// production only, stamps the security header set onto the response.
//
// Headers are flushed by the first body write, so the writer is wrapped to
// inject the set at that moment; if the chain never writes, the set is added
// once c.Next returns. Panics from the chain are not recovered here.
func SecurityHeadersMiddleware(env EnvironmentSource, detector *SecureRequestDetector) gin.HandlerFunc {
	logger.Debug("Security headers middleware configured",
		zap.Bool("production", env.IsProduction()),
		zap.Int("trusted_proxies", detector.TrustedProxyCount()),
	)

	return func(c *gin.Context) {
		w := &securityHeadersWriter{
			ResponseWriter: c.Writer,
			apply: func(h http.Header) {
				if !env.IsProduction() {
					return
				}
				secure := detector.IsSecure(c.Request)
				ApplySecurityHeaders(h, secure)
				metrics.SecurityHeadersApplied.WithLabelValues(strconv.FormatBool(secure)).Inc()
			},
		}
		c.Writer = w

		c.Next()

		w.inject()
	}
}

// securityHeadersWriter injects headers exactly once, just before the header
// block leaves the process.
type securityHeadersWriter struct {
	gin.ResponseWriter
	apply    func(http.Header)
	injected bool
}

func (w *securityHeadersWriter) inject() {
	if w.injected {
		return
	}
	w.injected = true
	if w.ResponseWriter.Written() {
		return
	}
	w.apply(w.ResponseWriter.Header())
}

func (w *securityHeadersWriter) WriteHeaderNow() {
	w.inject()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *securityHeadersWriter) Write(data []byte) (int, error) {
	w.inject()
	return w.ResponseWriter.Write(data)
}

func (w *securityHeadersWriter) WriteString(s string) (int, error) {
	w.inject()
	return w.ResponseWriter.WriteString(s)
}

func (w *securityHeadersWriter) Flush() {
	w.inject()
	w.ResponseWriter.Flush()
}
