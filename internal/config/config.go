package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Report log backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scoring parameters.
	Weights         domain.Weights
	ThresholdLow    float64
	ThresholdMedium float64
	ThresholdHigh   float64
	ImpactFactor    float64

	// Citizen report log.
	ReportStore         string
	ReportFile          string
	ReportSQLitePath    string
	ReportMaxAge        time.Duration
	ReportPruneInterval time.Duration

	// Region sources.
	RegionsFile     string
	GeometryFile    string
	ScoresFile      string
	HazardZonesFile string

	// Evaluation publishing.
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaEnabled    bool
	PublishInterval time.Duration

	// External advisory service.
	AdvisoryURL       string
	AdvisoryEnabled   bool
	AdvisoryTimeout   time.Duration
	AdvisoryCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ReportStore:      sharedcfg.EnvOrDefault("REPORT_STORE", StoreFile),
		ReportFile:       sharedcfg.EnvOrDefault("REPORT_FILE", "data/alerts.json"),
		ReportSQLitePath: sharedcfg.EnvOrDefault("REPORT_SQLITE_PATH", "data/reports.db"),

		RegionsFile:     os.Getenv("REGIONS_FILE"),
		GeometryFile:    sharedcfg.EnvOrDefault("GEOMETRY_FILE", "data/regions.geojson"),
		ScoresFile:      sharedcfg.EnvOrDefault("SCORES_FILE", "data/resilience_scores.csv"),
		HazardZonesFile: os.Getenv("HAZARD_ZONES_FILE"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "region-resilience"),

		AdvisoryURL: os.Getenv("ADVISORY_URL"),
	}

	floats := []struct {
		key string
		def float64
		dst *float64
	}{
		{"WEIGHT_EXPOSURE", 0.45, &cfg.Weights.Exposure},
		{"WEIGHT_VULNERABILITY", 0.35, &cfg.Weights.Vulnerability},
		{"WEIGHT_ADAPTATION", 0.20, &cfg.Weights.Adaptation},
		{"THRESHOLD_LOW", 30, &cfg.ThresholdLow},
		{"THRESHOLD_MEDIUM", 50, &cfg.ThresholdMedium},
		{"THRESHOLD_HIGH", 70, &cfg.ThresholdHigh},
		{"DISASTER_IMPACT_FACTOR", domain.DefaultImpactFactor, &cfg.ImpactFactor},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(f.key, f.def); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"REPORT_PRUNE_INTERVAL", "1h", &cfg.ReportPruneInterval},
		{"PUBLISH_INTERVAL", "5m", &cfg.PublishInterval},
		{"ADVISORY_TIMEOUT", "20s", &cfg.AdvisoryTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = parsePositiveDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.ReportMaxAge, err = domain.ParseMaxAge(sharedcfg.EnvOrDefault("REPORT_MAX_AGE", "24h")); err != nil {
		return nil, fmt.Errorf("invalid REPORT_MAX_AGE: %w", err)
	}

	cfg.AdvisoryCacheSize = parseAdvisoryCacheSize()
	cfg.KafkaEnabled = envBool("KAFKA_ENABLED", len(cfg.KafkaBrokers) > 0)
	cfg.AdvisoryEnabled = envBool("ADVISORY_ENABLED", cfg.AdvisoryURL != "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ReportStore {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("invalid REPORT_STORE %q: want file, sqlite or memory", c.ReportStore)
	}
	if c.ImpactFactor < 0 {
		return errors.New("invalid DISASTER_IMPACT_FACTOR: must not be negative")
	}
	if !(0 < c.ThresholdLow && c.ThresholdLow < c.ThresholdMedium && c.ThresholdMedium < c.ThresholdHigh && c.ThresholdHigh < 100) {
		return fmt.Errorf("invalid thresholds: need 0 < low (%v) < medium (%v) < high (%v) < 100",
			c.ThresholdLow, c.ThresholdMedium, c.ThresholdHigh)
	}
	if err := c.ScoringConfig().Validate(); err != nil {
		return err
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required")
		}
	}
	if c.AdvisoryEnabled && c.AdvisoryURL == "" {
		return errors.New("ADVISORY_ENABLED is true but ADVISORY_URL is not set")
	}
	return nil
}

// ScoringConfig returns the weights and the four category ranges
// critical [0,low), low [low,medium), medium [medium,high), high [high,100].
func (c *Config) ScoringConfig() domain.ScoringConfig {
	return domain.ScoringConfig{
		Weights: c.Weights,
		Thresholds: []domain.Threshold{
			{Category: domain.CategoryCritical, Min: 0, Max: c.ThresholdLow},
			{Category: domain.CategoryLow, Min: c.ThresholdLow, Max: c.ThresholdMedium},
			{Category: domain.CategoryMedium, Min: c.ThresholdMedium, Max: c.ThresholdHigh},
			{Category: domain.CategoryHigh, Min: c.ThresholdHigh, Max: 100},
		},
	}
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not a number", key, s)
	}
	return f, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}

func parseAdvisoryCacheSize() int {
	if s := os.Getenv("ADVISORY_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 100
}
