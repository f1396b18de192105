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

// Config holds all application settings, populated from environment variables.
type Config struct {
	DBPath          string
	CatalogPath     string
	TimeZone        *time.Location
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenWeatherMap lookup configuration.
	OWMAPIKey    string
	OWMBaseURL   string
	OWMTimeout   time.Duration
	OWMRateLimit float64
	OWMBurst     int
	OWMCacheSize int
	OWMCacheTTL  time.Duration

	// Side-effect collaborators.
	KafkaBrokers  []string
	KafkaCueTopic string
	KafkaEnabled  bool
	BacklightDir  string
	BellEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; real environment wins

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	owmTimeout, err := parsePositiveDuration("OWM_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(envOrDefault("OWM_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid OWM_RATE_LIMIT")
	}

	burst, err := strconv.Atoi(envOrDefault("OWM_BURST", "5"))
	if err != nil || burst <= 0 {
		return nil, errors.New("invalid OWM_BURST")
	}

	cacheSize, err := strconv.Atoi(envOrDefault("OWM_CACHE_SIZE", "128"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid OWM_CACHE_SIZE")
	}

	cacheTTL, err := parsePositiveDuration("OWM_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	loc, err := parseTimeZone(os.Getenv("TIME_ZONE"))
	if err != nil {
		return nil, err
	}

	bell, err := strconv.ParseBool(envOrDefault("SOUND_ENABLED_BELL", "true"))
	if err != nil {
		return nil, errors.New("invalid SOUND_ENABLED_BELL")
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		DBPath:          envOrDefault("DB_PATH", "weather.db"),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		TimeZone:        loc,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OWMAPIKey:    os.Getenv("OWM_API_KEY"),
		OWMBaseURL:   strings.TrimRight(envOrDefault("OWM_BASE_URL", "https://api.openweathermap.org"), "/"),
		OWMTimeout:   owmTimeout,
		OWMRateLimit: rateLimit,
		OWMBurst:     burst,
		OWMCacheSize: cacheSize,
		OWMCacheTTL:  cacheTTL,

		KafkaBrokers:  brokers,
		KafkaCueTopic: envOrDefault("KAFKA_CUE_TOPIC", "weather-cues"),
		KafkaEnabled:  len(brokers) > 0,
		BacklightDir:  os.Getenv("BACKLIGHT_DIR"),
		BellEnabled:   bell,
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseTimeZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE: %w", err)
	}
	return loc, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
