// Package config reads the service settings from the environment, loading a
// .env file first outside production.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	SecretKey   string
	DatabaseURL string

	UploadFolder string

	R2AccessKey  string
	R2SecretKey  string
	R2BucketName string
	R2Endpoint   string
	CDNDomain    string
	LocalBackup  bool

	AdminUsername string
	AdminPassword string
	SessionTTL    time.Duration

	ImageMaxWidth int
	ImageQuality  int

	CORSOrigins []string
}

// Load reads .env (outside production) and the environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8081"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		DatabaseURL:   getEnv("DATABASE_URL", "sqlite://menu.db"),
		UploadFolder:  getEnv("UPLOAD_FOLDER", "uploads"),
		R2AccessKey:   os.Getenv("R2_ACCESS_KEY"),
		R2SecretKey:   os.Getenv("R2_SECRET_KEY"),
		R2BucketName:  os.Getenv("R2_BUCKET_NAME"),
		R2Endpoint:    os.Getenv("R2_ENDPOINT"),
		CDNDomain:     os.Getenv("CDN_DOMAIN"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	var err error
	if cfg.LocalBackup, err = getBool("LOCAL_BACKUP", false); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ImageMaxWidth, err = getInt("IMAGE_MAX_WIDTH", 800); err != nil {
		return nil, err
	}
	if cfg.ImageQuality, err = getInt("IMAGE_QUALITY", 85); err != nil {
		return nil, err
	}
	if cfg.ImageQuality < 1 || cfg.ImageQuality > 100 {
		return nil, fmt.Errorf("IMAGE_QUALITY must be between 1 and 100, got %d", cfg.ImageQuality)
	}
	return cfg, nil
}

// RemoteStorageEnabled is true only when the bucket credentials, endpoint
// and the public CDN domain are all set.
func (c *Config) RemoteStorageEnabled() bool {
	return c.R2AccessKey != "" &&
		c.R2SecretKey != "" &&
		c.R2BucketName != "" &&
		c.R2Endpoint != "" &&
		c.CDNDomain != ""
}

// Validate checks what the API server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.SecretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if c.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env var: %s", strings.Join(missing, ", "))
	}
	if c.Env == "production" && len(c.SecretKey) < 16 {
		return errors.New("SECRET_KEY is too short for production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
