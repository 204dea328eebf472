package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	DatabasePath   string
	MediaRoot      string
	MediaURL       string
	MaxUploadBytes int64
	ServiceName    string
	MetricsEnabled bool
	RequestTimeout time.Duration
	LogLevel       string
}

// Load merges an optional .env file into the environment and reads the
// settings from it. Variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/blog.db"),
		MediaRoot:      getEnv("MEDIA_ROOT", "./media"),
		MediaURL:       getEnv("MEDIA_URL", "/media/"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		ServiceName:    getEnv("SERVICE_NAME", "blog"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
