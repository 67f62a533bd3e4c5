package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	DatabaseDSN string // vacío = repos in-memory (modo dev)

	// JWTSecret vacío = modo dev: el router acepta X-Debug-User-ID.
	JWTSecret string

	// ResyncEvery: cada cuánto el job periódico repite el pase de reschedule
	// (además del pase de medianoche para el cambio de día).
	ResyncEvery time.Duration

	CORSAllowedOrigins []string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseDSN: getenv("DB_DSN", ""),
		JWTSecret:   getenv("JWT_SECRET", ""),
	}

	every := getenv("RESYNC_EVERY", "15m")
	d, err := time.ParseDuration(every)
	if err != nil || d <= 0 {
		d = 15 * time.Minute
	}
	cfg.ResyncEvery = d

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
