package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

var ErrInvalidGinMode = errors.New("server.gin_mode must be debug, release or test")

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address           string   `mapstructure:"address"`
	CORSOrigins       []string `mapstructure:"cors_origins"`
	MaxUploadMemoryMB int64    `mapstructure:"max_upload_memory_mb"`
	GinMode           string   `mapstructure:"gin_mode"` // debug, release or test
}

// DatabaseConfig is optional. An empty URI disables the upload metadata log.
type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// Storage drivers understood by storage.New.
const (
	DriverS3     = "s3"
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

type S3Config struct {
	Driver          string `mapstructure:"driver"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// HasStaticCredentials reports whether an access key pair was configured.
// Without one the AWS default credential chain is used.
func (c S3Config) HasStaticCredentials() bool {
	return c.AccessKeyID != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// envBindings maps config keys to the environment variables they are read from,
// in order of precedence.
var envBindings = map[string][]string{
	"s3.region":            {"AWS_REGION", "AWS_DEFAULT_REGION"},
	"s3.bucket_name":       {"AWS_S3_BUCKET_NAME", "S3_BUCKET_NAME"},
	"s3.access_key_id":     {"AWS_ACCESS_KEY_ID"},
	"s3.secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
	"s3.endpoint":          {"S3_ENDPOINT"},
	"s3.driver":            {"S3_DRIVER"},
	"s3.use_ssl":           {"S3_USE_SSL"},
	"server.gin_mode":      {"GIN_MODE"},
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, log.level -> LOG_LEVEL
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, err
		}
	}

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_upload_memory_mb", 32)
	v.SetDefault("server.gin_mode", gin.ReleaseMode)
	v.SetDefault("database.uri", "")
	v.SetDefault("database.name", "file_storage")
	v.SetDefault("s3.driver", DriverS3)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, env vars and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.S3.Driver = strings.ToLower(strings.TrimSpace(cfg.S3.Driver))

	cfg.Server.GinMode = strings.ToLower(strings.TrimSpace(cfg.Server.GinMode))
	switch cfg.Server.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return Config{}, fmt.Errorf("%w: got %q", ErrInvalidGinMode, cfg.Server.GinMode)
	}

	return cfg, nil
}
