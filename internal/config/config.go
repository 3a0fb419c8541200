// Package config loads polyswap settings from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// MinIO configures proof photo storage. Storage is disabled when Endpoint is
// empty.
type MinIO struct {
	Endpoint  string `validate:"omitempty,hostname_port"`
	AccessKey string `validate:"required_with=Endpoint"`
	SecretKey string `validate:"required_with=Endpoint"`
	Bucket    string `validate:"required_with=Endpoint"`
	UseSSL    bool
	PublicURL string `validate:"omitempty,url"`
}

// Enabled reports whether proof photos can be uploaded.
func (m MinIO) Enabled() bool { return m.Endpoint != "" }

// Config holds the runtime configuration.
type Config struct {
	Addr      string        `validate:"required"`
	DBDriver  string        `validate:"oneof=sqlite pgx postgres"`
	DBDSN     string        `validate:"required"`
	JWTSecret string        `validate:"omitempty,min=32"`
	TokenTTL  time.Duration `validate:"gte=0"`
	LogFile   string
	MinIO     MinIO
}

// Defaults.
const (
	DefaultAddr     = ":8080"
	DefaultDriver   = "sqlite"
	DefaultDSN      = "polyswap.db"
	DefaultTokenTTL = 30 * 24 * time.Hour
)

var validate = validator.New()

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	ttl, err := getEnvDuration("POLYSWAP_TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return nil, err
	}
	useSSL, err := getEnvBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Addr:      getEnv("POLYSWAP_ADDR", DefaultAddr),
		DBDriver:  getEnv("POLYSWAP_DB_DRIVER", DefaultDriver),
		DBDSN:     getEnv("POLYSWAP_DB_DSN", DefaultDSN),
		JWTSecret: os.Getenv("POLYSWAP_JWT_SECRET"),
		TokenTTL:  ttl,
		LogFile:   os.Getenv("POLYSWAP_LOG"),
		MinIO: MinIO{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "proofs"),
			UseSSL:    useSSL,
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
	}, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}
