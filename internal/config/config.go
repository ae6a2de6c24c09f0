package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Forecast validation configuration.
	SeasonStartYear int
	LocationsFile   string // empty means the bundled locations table

	// Forecast hub configuration service (feature-flagged).
	HubURL       string
	HubToken     string
	HubProject   string
	HubEnabled   bool
	HubTimeout   time.Duration
	HubCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	seasonStartYear, err := parseSeasonStartYear()
	if err != nil {
		return nil, err
	}

	hubTimeout, err := parseDuration("HUB_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	hubURL := envOrDefault("HUB_URL", "")
	hubEnabled := hubURL != ""
	if v := os.Getenv("HUB_ENABLED"); v != "" {
		hubEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "forecast-submissions"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "validated-forecasts"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "forecast-hub-etl"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SeasonStartYear: seasonStartYear,
		LocationsFile:   os.Getenv("LOCATIONS_FILE"),

		HubURL:       hubURL,
		HubToken:     os.Getenv("HUB_TOKEN"),
		HubProject:   envOrDefault("HUB_PROJECT", "covid-19"),
		HubEnabled:   hubEnabled,
		HubTimeout:   hubTimeout,
		HubCacheSize: parseHubCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.HubEnabled && cfg.HubURL == "" {
		return nil, errors.New("HUB_ENABLED is true but HUB_URL is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	n, err := strconv.Atoi(envOrDefault("BATCH_SIZE", "50"))
	if err != nil || n < 1 || n > 1000 {
		return 0, errors.New("invalid BATCH_SIZE: must be an integer in [1, 1000]")
	}
	return n, nil
}

// parseSeasonStartYear defaults to the calendar year; CDC submissions name
// their season out of band, so deployments pin this per season.
func parseSeasonStartYear() (int, error) {
	s := os.Getenv("SEASON_START_YEAR")
	if s == "" {
		return time.Now().Year(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1900 || n > 2200 {
		return 0, errors.New("invalid SEASON_START_YEAR")
	}
	return n, nil
}

func parseHubCacheSize() int {
	if s := os.Getenv("HUB_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
