package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/getmentor/getmentor-edge/pkg/errors"
)

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			GinMode:      "release",
			AppEnv:       EnvProduction,
			MaxBodyBytes: 1024,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 10, Burst: 20},
		Logging:   LoggingConfig{Level: "info"},
		Observability: ObservabilityConfig{
			ServiceName: "getmentor-edge",
		},
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "development environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "development"},
			},
			expected: true,
		},
		{
			name: "debug gin mode",
			config: &Config{
				Server: ServerConfig{GinMode: "debug"},
			},
			expected: true,
		},
		{
			name: "production environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "production"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name     string
		appEnv   string
		expected bool
	}{
		{name: "production", appEnv: "production", expected: true},
		{name: "development", appEnv: "development", expected: false},
		{name: "staging", appEnv: "staging", expected: false},
		{name: "capitalised", appEnv: "Production", expected: false},
		{name: "padded", appEnv: " production", expected: false},
		{name: "empty", appEnv: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{AppEnv: tt.appEnv}}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "unknown environment",
			mutate:   func(c *Config) { c.Server.AppEnv = "prod" },
			errorMsg: "AppEnv",
		},
		{
			name:     "non numeric port",
			mutate:   func(c *Config) { c.Server.Port = "http" },
			errorMsg: "Port",
		},
		{
			name:     "missing port",
			mutate:   func(c *Config) { c.Server.Port = "" },
			errorMsg: "Port",
		},
		{
			name:     "zero burst",
			mutate:   func(c *Config) { c.RateLimit.Burst = 0 },
			errorMsg: "Burst",
		},
		{
			name:     "zero body limit",
			mutate:   func(c *Config) { c.Server.MaxBodyBytes = 0 },
			errorMsg: "MaxBodyBytes",
		},
		{
			name:     "profiling without endpoint",
			mutate:   func(c *Config) { c.Profiling.Enabled = true },
			errorMsg: "Endpoint",
		},
		{
			name: "profiling with endpoint",
			mutate: func(c *Config) {
				c.Profiling.Enabled = true
				c.Profiling.Endpoint = "http://pyroscope:4040"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, []string{"https://getmentor.dev", "https://www.getmentor.dev"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, float64(100), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1 ,")
	t.Setenv("PUBLIC_DIR", "/srv/www")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.GinMode)
	assert.Equal(t, "development", cfg.Server.AppEnv)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "/srv/www", cfg.Server.PublicDir)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_ValidationFailure(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}
