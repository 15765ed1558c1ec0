package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnvFile(t *testing.T, path string) {
	t.Helper()
	orig := envFile
	envFile = path
	t.Cleanup(func() { envFile = orig })
}

func TestParseEnv_OverlaysSetVariables(t *testing.T) {
	withEnvFile(t, filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("GEOCRYPT_REDIS_ADDR", "redis:6380")
	t.Setenv("GEOCRYPT_OTP_TTL", "2m")
	t.Setenv("GEOCRYPT_SMTP_PORT", "2525")
	t.Setenv("GEOCRYPT_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "redis:6380", c.RedisAddr)
	assert.Equal(t, 2*time.Minute, c.OTPTTL)
	assert.Equal(t, 2525, c.SMTPPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSAllowedOrigins)
	// untouched
	assert.Equal(t, "geocrypt", c.S3Bucket)
}

func TestParseEnv_LoadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GEOCRYPT_S3_BUCKET=from-dotenv\n"), 0o600))
	withEnvFile(t, path)
	t.Setenv("GEOCRYPT_S3_BUCKET", "")
	require.NoError(t, os.Unsetenv("GEOCRYPT_S3_BUCKET"))

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "from-dotenv", c.S3Bucket)
}

func TestParseEnv_InvalidValuePanics(t *testing.T) {
	withEnvFile(t, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("GEOCRYPT_BACKEND_TIMEOUT", "not-a-duration")

	var c Config
	require.Panics(t, func() { parseEnv(&c) })
}
