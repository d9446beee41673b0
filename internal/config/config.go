package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries everything the pipeline needs, passed explicitly into
// constructors so tests can substitute fakes.
type AppConfig struct {
	// Sentinel Hub OAuth client credentials.
	SentinelHubClientID     string
	SentinelHubClientSecret string

	// NASA Earthdata basic credentials (GRACE soil moisture).
	EarthdataUsername string
	EarthdataPassword string

	// Earth Engine bearer key (water usage).
	EarthEngineAPIKey string

	// RefreshInterval controls how often the fleet is refreshed.
	RefreshInterval time.Duration

	// RefreshTimeout bounds one whole refresh cycle.
	RefreshTimeout time.Duration

	// HTTPTimeout for outbound adapter calls.
	HTTPTimeout time.Duration

	// UseFirestore selects the Firestore gateway over the in-memory one.
	UseFirestore bool

	// In-memory store retention.
	StoreMaxHistory int           // max number of results per site (0 = unlimited)
	StoreMaxAge     time.Duration // max age of results (0 = unlimited)

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.SentinelHubClientID = os.Getenv("SENTINEL_HUB_CLIENT_ID")
	cfg.SentinelHubClientSecret = os.Getenv("SENTINEL_HUB_CLIENT_SECRET")
	cfg.EarthdataUsername = os.Getenv("NASA_EARTHDATA_USERNAME")
	cfg.EarthdataPassword = os.Getenv("NASA_EARTHDATA_PASSWORD")
	cfg.EarthEngineAPIKey = os.Getenv("EARTH_ENGINE_API_KEY")

	// Refresh interval: default 15 minutes.
	intervalStr := getenvDefault("REFRESH_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = interval

	timeoutStr := getenvDefault("REFRESH_TIMEOUT", "5m")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TIMEOUT: %w", err)
	}
	cfg.RefreshTimeout = timeout

	httpTimeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	httpTimeout, err := time.ParseDuration(httpTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = httpTimeout

	cfg.UseFirestore = os.Getenv("FIREBASE_CREDENTIALS") != ""

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals

	maxAgeStr := getenvDefault("STORE_MAX_AGE", "24h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
