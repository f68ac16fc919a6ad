package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures configuration for the cloud license service.
type Server struct {
	Addr            string
	PostgresDSN     string
	RedisURL        string
	KafkaBrokers    []string
	JWTSigningKey   string
	AdminToken      string
	LicenseDuration time.Duration
	MaxDevices      int
	PruneInterval   time.Duration
}

// Studio captures configuration for the local desktop backend.
type Studio struct {
	Addr          string
	DataPath      string
	JWTSigningKey string
	LicenseToken  string
	DeviceIDFile  string
}

// ServerFromEnv builds the license service config from environment variables
// so main stays lean.
func ServerFromEnv() Server {
	return Server{
		Addr:            envOr("SONOREPORT_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("SONOREPORT_POSTGRES_DSN"),
		RedisURL:        os.Getenv("SONOREPORT_REDIS_URL"),
		KafkaBrokers:    splitList(os.Getenv("SONOREPORT_KAFKA_BROKERS")),
		JWTSigningKey:   envOr("SONOREPORT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminToken:      os.Getenv("SONOREPORT_ADMIN_TOKEN"),
		LicenseDuration: envDuration("SONOREPORT_LICENSE_DURATION", 30*24*time.Hour),
		MaxDevices:      envInt("SONOREPORT_MAX_DEVICES", 2),
		PruneInterval:   envDuration("SONOREPORT_PRUNE_INTERVAL", 24*time.Hour),
	}
}

// StudioFromEnv builds the desktop backend config.
func StudioFromEnv() Studio {
	return Studio{
		Addr:          envOr("SONOREPORT_STUDIO_ADDR", "127.0.0.1:8090"),
		DataPath:      envOr("SONOREPORT_DATA_PATH", "sonoreport.db"),
		JWTSigningKey: envOr("SONOREPORT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LicenseToken:  os.Getenv("SONOREPORT_LICENSE_TOKEN"),
		DeviceIDFile:  os.Getenv("SONOREPORT_DEVICE_ID_FILE"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
