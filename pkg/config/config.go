package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddress string
	DebugAddress  string

	CredentialsFile string
	ProjectId       string
	// PhonesFile is used instead of Firestore when no Firebase project is configured.
	PhonesFile string

	RedisUrl      string
	RedisPassword string
	RabbitUrl     string

	LogLevel string
	LogFile  string

	SessionTTL      time.Duration
	QueryTimeout    time.Duration
	PersistTimeout  time.Duration
	CacheMaxEntries int
	EnableProfiling bool
}

func Default() Config {
	return Config{
		ListenAddress:  ":8080",
		DebugAddress:   ":8081",
		PhonesFile:     "data/phones.json",
		LogLevel:       "info",
		SessionTTL:     2 * time.Hour,
		QueryTimeout:   10 * time.Second,
		PersistTimeout: 5 * time.Second,
	}
}

// UseFirebase reports whether the managed stores should be used.
func (c Config) UseFirebase() bool {
	return c.ProjectId != "" || c.CredentialsFile != ""
}

// Load reads the environment, after applying an optional .env file.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	cfg := Default()
	str(&cfg.ListenAddress, "LISTEN_ADDRESS")
	str(&cfg.DebugAddress, "DEBUG_ADDRESS")
	str(&cfg.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	str(&cfg.ProjectId, "FIREBASE_PROJECT_ID")
	str(&cfg.PhonesFile, "PHONES_FILE")
	str(&cfg.RedisUrl, "REDIS_URL")
	str(&cfg.RedisPassword, "REDIS_PASSWORD")
	str(&cfg.RabbitUrl, "RABBIT_HOST")
	str(&cfg.LogLevel, "LOG_LEVEL")
	str(&cfg.LogFile, "LOG_FILE")
	seconds(&cfg.SessionTTL, "SESSION_TTL")
	seconds(&cfg.QueryTimeout, "QUERY_TIMEOUT")
	seconds(&cfg.PersistTimeout, "PERSIST_TIMEOUT")
	if v, ok := os.LookupEnv("CACHE_MAX_ENTRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.CacheMaxEntries = n
		}
	}
	if v, ok := os.LookupEnv("ENABLE_PROFILING"); ok {
		cfg.EnableProfiling, _ = strconv.ParseBool(v)
	}
	return cfg, nil
}

func str(curr *string, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*curr = v
	}
}

// seconds keeps the default when the value is not a positive integer.
func seconds(curr *time.Duration, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*curr = time.Duration(n) * time.Second
		}
	}
}
