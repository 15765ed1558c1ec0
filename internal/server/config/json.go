package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/geocrypt/internal/flagx"
	"github.com/dmitrijs2005/geocrypt/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Interval fields
// use timex.Duration so both "90s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisPassword               string         `json:"redis_password"`
	RedisDB                     int            `json:"redis_db"`
	ObjectStoreDriver           string         `json:"object_store_driver"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	SMTPHost                    string         `json:"smtp_host"`
	SMTPPort                    int            `json:"smtp_port"`
	SMTPUser                    string         `json:"smtp_user"`
	SMTPPassword                string         `json:"smtp_password"`
	SMTPFrom                    string         `json:"smtp_from"`
	OTPTTL                      timex.Duration `json:"otp_ttl"`
	DownloadURLExpiry           timex.Duration `json:"download_url_expiry"`
	BackendTimeout              timex.Duration `json:"backend_timeout"`
	MaxUploadSize               int64          `json:"max_upload_size"`
	UserCacheSize               int            `json:"user_cache_size"`
	UserCacheTTL                timex.Duration `json:"user_cache_ttl"`
	CORSAllowedOrigins          []string       `json:"cors_allowed_origins"`
	LogLevel                    string         `json:"log_level"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:            c.EndpointAddrHTTP,
		EndpointAddrGRPC:            c.EndpointAddrGRPC,
		DatabaseDSN:                 c.DatabaseDSN,
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		RedisAddr:                   c.RedisAddr,
		RedisPassword:               c.RedisPassword,
		RedisDB:                     c.RedisDB,
		ObjectStoreDriver:           c.ObjectStoreDriver,
		S3RootUser:                  c.S3RootUser,
		S3RootPassword:              c.S3RootPassword,
		S3Bucket:                    c.S3Bucket,
		S3Region:                    c.S3Region,
		S3BaseEndpoint:              c.S3BaseEndpoint,
		SMTPHost:                    c.SMTPHost,
		SMTPPort:                    c.SMTPPort,
		SMTPUser:                    c.SMTPUser,
		SMTPPassword:                c.SMTPPassword,
		SMTPFrom:                    c.SMTPFrom,
		OTPTTL:                      timex.Duration{Duration: c.OTPTTL},
		DownloadURLExpiry:           timex.Duration{Duration: c.DownloadURLExpiry},
		BackendTimeout:              timex.Duration{Duration: c.BackendTimeout},
		MaxUploadSize:               c.MaxUploadSize,
		UserCacheSize:               c.UserCacheSize,
		UserCacheTTL:                timex.Duration{Duration: c.UserCacheTTL},
		CORSAllowedOrigins:          c.CORSAllowedOrigins,
		LogLevel:                    c.LogLevel,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.RedisDB = j.RedisDB
	c.ObjectStoreDriver = j.ObjectStoreDriver
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.SMTPHost = j.SMTPHost
	c.SMTPPort = j.SMTPPort
	c.SMTPUser = j.SMTPUser
	c.SMTPPassword = j.SMTPPassword
	c.SMTPFrom = j.SMTPFrom
	c.OTPTTL = j.OTPTTL.Duration
	c.DownloadURLExpiry = j.DownloadURLExpiry.Duration
	c.BackendTimeout = j.BackendTimeout.Duration
	c.MaxUploadSize = j.MaxUploadSize
	c.UserCacheSize = j.UserCacheSize
	c.UserCacheTTL = j.UserCacheTTL.Duration
	c.CORSAllowedOrigins = j.CORSAllowedOrigins
	c.LogLevel = j.LogLevel
}

// parseJson overlays values from the JSON file named by -c/-config (or
// GEOCRYPT_CONFIG) onto config. Keys absent from the file keep their current
// value. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}
