package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, domain.Weights{Exposure: 0.45, Vulnerability: 0.35, Adaptation: 0.20}, cfg.Weights)
	assert.Equal(t, 0.5, cfg.ImpactFactor)

	assert.Equal(t, StoreFile, cfg.ReportStore)
	assert.Equal(t, "data/alerts.json", cfg.ReportFile)
	assert.Equal(t, "data/reports.db", cfg.ReportSQLitePath)
	assert.Equal(t, 24*time.Hour, cfg.ReportMaxAge)
	assert.Equal(t, time.Hour, cfg.ReportPruneInterval)

	assert.Empty(t, cfg.RegionsFile)
	assert.Equal(t, "data/regions.geojson", cfg.GeometryFile)
	assert.Equal(t, "data/resilience_scores.csv", cfg.ScoresFile)
	assert.Empty(t, cfg.HazardZonesFile)

	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "region-resilience", cfg.KafkaTopic)
	assert.Equal(t, 5*time.Minute, cfg.PublishInterval)

	assert.False(t, cfg.AdvisoryEnabled)
	assert.Equal(t, 20*time.Second, cfg.AdvisoryTimeout)
	assert.Equal(t, 100, cfg.AdvisoryCacheSize)
}

func TestLoad_DefaultScoringConfigMatchesDomain(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	if diff := cmp.Diff(domain.DefaultScoringConfig(), cfg.ScoringConfig()); diff != "" {
		t.Errorf("ScoringConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("WEIGHT_EXPOSURE", "0.5")
	t.Setenv("WEIGHT_VULNERABILITY", "0.3")
	t.Setenv("WEIGHT_ADAPTATION", "0.25")
	t.Setenv("THRESHOLD_LOW", "25")
	t.Setenv("THRESHOLD_MEDIUM", "45")
	t.Setenv("THRESHOLD_HIGH", "75")
	t.Setenv("DISASTER_IMPACT_FACTOR", "0.8")
	t.Setenv("REPORT_STORE", "sqlite")
	t.Setenv("REPORT_SQLITE_PATH", "/var/lib/island/reports.db")
	t.Setenv("REPORT_MAX_AGE", "48")
	t.Setenv("REPORT_PRUNE_INTERVAL", "15m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("PUBLISH_INTERVAL", "30s")
	t.Setenv("ADVISORY_URL", "http://advisor.local/v1/report")
	t.Setenv("ADVISORY_TIMEOUT", "5s")
	t.Setenv("ADVISORY_CACHE_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 0.8, cfg.ImpactFactor)
	assert.Equal(t, StoreSQLite, cfg.ReportStore)
	assert.Equal(t, 48*time.Hour, cfg.ReportMaxAge)
	assert.Equal(t, 15*time.Minute, cfg.ReportPruneInterval)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.Equal(t, 30*time.Second, cfg.PublishInterval)
	assert.True(t, cfg.AdvisoryEnabled)
	assert.Equal(t, 5*time.Second, cfg.AdvisoryTimeout)
	assert.Equal(t, 10, cfg.AdvisoryCacheSize)

	sc := cfg.ScoringConfig()
	assert.Equal(t, domain.Weights{Exposure: 0.5, Vulnerability: 0.3, Adaptation: 0.25}, sc.Weights)
	require.Len(t, sc.Thresholds, 4)
	assert.Equal(t, domain.Threshold{Category: domain.CategoryLow, Min: 25, Max: 45}, sc.Thresholds[1])
	assert.Equal(t, domain.Threshold{Category: domain.CategoryHigh, Min: 75, Max: 100}, sc.Thresholds[3])
}

func TestLoad_FeatureToggles(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("ADVISORY_URL", "http://advisor.local")
	t.Setenv("ADVISORY_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.False(t, cfg.AdvisoryEnabled)
}

func TestLoad_InvalidCacheSizeFallsBack(t *testing.T) {
	t.Setenv("ADVISORY_CACHE_SIZE", "-5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.AdvisoryCacheSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}, "SHUTDOWN_TIMEOUT"},
		{"non-numeric weight", map[string]string{"WEIGHT_EXPOSURE": "heavy"}, "WEIGHT_EXPOSURE"},
		{"negative weight", map[string]string{"WEIGHT_ADAPTATION": "-0.1"}, "adaptation weight"},
		{"thresholds out of order", map[string]string{"THRESHOLD_LOW": "60"}, "thresholds"},
		{"threshold at 100", map[string]string{"THRESHOLD_HIGH": "100"}, "thresholds"},
		{"zero low threshold", map[string]string{"THRESHOLD_LOW": "0"}, "thresholds"},
		{"negative impact factor", map[string]string{"DISASTER_IMPACT_FACTOR": "-1"}, "DISASTER_IMPACT_FACTOR"},
		{"bad max age", map[string]string{"REPORT_MAX_AGE": "forever"}, "REPORT_MAX_AGE"},
		{"zero prune interval", map[string]string{"REPORT_PRUNE_INTERVAL": "0s"}, "REPORT_PRUNE_INTERVAL"},
		{"bad publish interval", map[string]string{"PUBLISH_INTERVAL": "often"}, "PUBLISH_INTERVAL"},
		{"bad advisory timeout", map[string]string{"ADVISORY_TIMEOUT": "-1s"}, "ADVISORY_TIMEOUT"},
		{"unknown store", map[string]string{"REPORT_STORE": "redis"}, "REPORT_STORE"},
		{"kafka without brokers", map[string]string{"KAFKA_ENABLED": "true"}, "KAFKA_BROKERS"},
		{"advisory without url", map[string]string{"ADVISORY_ENABLED": "true"}, "ADVISORY_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRegions_Embedded(t *testing.T) {
	coords, err := LoadRegions("")
	require.NoError(t, err)
	require.Len(t, coords, 12)

	assert.Equal(t, domain.Coordinate{RegionID: "MUPL", Name: "Port Louis", Lat: -20.1612, Lon: 57.5012}, coords[0])
	assert.Equal(t, "MUCC", coords[11].RegionID)
}

func TestLoadRegions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`regions:
  - region_id: " east "
    lat: -20.3
    lon: 57.7
  - region_id: WEST
    name: West Coast
    lat: -20.3
    lon: 57.3
`), 0o644))

	coords, err := LoadRegions(path)
	require.NoError(t, err)
	want := []domain.Coordinate{
		{RegionID: "EAST", Name: "EAST", Lat: -20.3, Lon: 57.7},
		{RegionID: "WEST", Name: "West Coast", Lat: -20.3, Lon: 57.3},
	}
	if diff := cmp.Diff(want, coords); diff != "" {
		t.Errorf("LoadRegions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRegions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "regions: []\n"},
		{"missing id", "regions:\n  - name: Nowhere\n    lat: 0\n    lon: 0\n"},
		{"duplicate id", "regions:\n  - region_id: A\n  - region_id: a\n"},
		{"latitude out of range", "regions:\n  - region_id: A\n    lat: 95\n    lon: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRegions([]byte(tt.yaml))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := parseRegions([]byte("regions: [unterminated"))
	assert.ErrorContains(t, err, "decode regions")

	_, err = LoadRegions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read regions file")
}
