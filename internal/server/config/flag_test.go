package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:8080", "-q", ":6000", "-d", "db", "-s", "secret", "-t", "5",
				"-k", "redis:6379", "-o", "minio", "-u", "user", "-p", "password", "-b", "bucket",
				"-g", "us-west-1", "-e", "http://endpoint", "-m", "smtp.example", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP:            "127.0.0.1:8080",
				EndpointAddrGRPC:            ":6000",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 5 * time.Minute,
				RedisAddr:                   "redis:6379",
				ObjectStoreDriver:           "minio",
				S3RootUser:                  "user",
				S3RootPassword:              "password",
				S3Bucket:                    "bucket",
				S3Region:                    "us-west-1",
				S3BaseEndpoint:              "http://endpoint",
				SMTPHost:                    "smtp.example",
				LogLevel:                    "debug",
			},
		},
		{
			name:     "unknown flags ignored",
			args:     []string{"cmd", "-z", "1", "-a", ":9000"},
			expected: &Config{EndpointAddrHTTP: ":9000"},
		},
		{
			name:        "non-integer minutes panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
