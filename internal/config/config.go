package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	AdminKey            string // guards operator endpoints (reconcile, refresh)
	FrontendURLEndsWith string
	DevPassword         string

	MaxHorizonMonths    int           // growth projection ceiling
	SyncInterval        time.Duration // synchronizer poll interval
	SyncBackoffCeiling  time.Duration // degraded-mode retry cap
	ReconcileInterval   time.Duration // orphan-view sweep interval
	TransientRetryCount int           // store retry attempts on connectivity failure
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" && viper.GetString("DATABASE_URL_TEST") != "" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		AdminKey:            viper.GetString("ADMIN_KEY"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),

		MaxHorizonMonths:    intOr("MAX_HORIZON_MONTHS", 600),
		SyncInterval:        secondsOr("SYNC_INTERVAL_SECONDS", 15),
		SyncBackoffCeiling:  secondsOr("SYNC_BACKOFF_CEILING_SECONDS", 120),
		ReconcileInterval:   secondsOr("RECONCILE_INTERVAL_SECONDS", 300),
		TransientRetryCount: intOr("TRANSIENT_RETRY_ATTEMPTS", 3),
	}, nil
}

func intOr(key string, fallback int) int {
	if v := viper.GetInt(key); v > 0 {
		return v
	}
	return fallback
}

func secondsOr(key string, fallback int) time.Duration {
	return time.Duration(intOr(key, fallback)) * time.Second
}
