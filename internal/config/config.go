package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries every environment-driven setting the service consumes.
type Config struct {
	Addr     string
	PGDSN    string
	MediaDir string

	// Core identity service reachable at CoreURL:CorePort.
	CoreURL  string
	CorePort int

	// EnableUserCaching toggles persisting resolved identities keyed by token.
	EnableUserCaching bool

	// BoardCircleID identifies the global board circle; membership in any
	// circle whose parent is this circle grants boardmember status.
	BoardCircleID int64

	RateBurst  int
	RatePerSec int
}

// Load reads configuration from the environment, applying defaults where a
// variable is unset.
func Load() Config {
	return Config{
		Addr:              getEnv("EVENTS_ADDR", ":8084"),
		PGDSN:             os.Getenv("EVENTS_PG_DSN"),
		MediaDir:          getEnv("EVENTS_MEDIA_DIR", "./media"),
		CoreURL:           getEnv("EVENTS_CORE_URL", "http://core"),
		CorePort:          getEnvInt("EVENTS_CORE_PORT", 80),
		EnableUserCaching: getEnvBool("EVENTS_ENABLE_USER_CACHING", true),
		BoardCircleID:     int64(getEnvInt("EVENTS_BOARD_CIRCLE_ID", 0)),
		RateBurst:         getEnvInt("EVENTS_RATE_BURST", 20),
		RatePerSec:        getEnvInt("EVENTS_RATE_PER_SEC", 10),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
