package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr       string
	ServiceURL     string
	HTTPTimeout    time.Duration
	NoticeTTL      time.Duration
	TokenStore     string
	TokenFile      string
	BoltPath       string
	RedisAddr      string
	RedisPassword  string
	RedisKeyPrefix string
	LogLevel       string
	LogFormat      string
}

func Load() Config {
	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", "127.0.0.1:8090"),
		ServiceURL:     getenv("SERVICE_URL", "http://127.0.0.1:8000"),
		HTTPTimeout:    getenvDuration("HTTP_TIMEOUT", 10*time.Second),
		NoticeTTL:      getenvDuration("NOTICE_TTL", 5*time.Second),
		TokenStore:     getenv("TOKEN_STORE", "file"),
		TokenFile:      getenv("TOKEN_FILE", defaultStatePath("session.json")),
		BoltPath:       getenv("BOLT_PATH", defaultStatePath("session.db")),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		RedisKeyPrefix: getenv("REDIS_KEY_PREFIX", "mergington:"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func defaultStatePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mergington", name)
	}
	return filepath.Join(home, ".mergington", name)
}
