package filelog_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/adapter/filelog"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(id, region string, kind domain.ReportKind, at time.Time) domain.CitizenReport {
	return domain.CitizenReport{ID: id, RegionID: region, Kind: kind, CreatedAt: at}
}

func TestScan_MissingFileIsEmpty(t *testing.T) {
	l := filelog.New(filepath.Join(t.TempDir(), "alerts.json"))

	got, err := l.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScan_EmptyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	got, err := filelog.New(path).Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendScanRewrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "alerts.json")
	l := filelog.New(path)
	at := time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append(ctx, report("a", "MUPL", domain.ReportDanger, at)))
	require.NoError(t, l.Append(ctx, report("b", "MUMO", domain.ReportSafe, at.Add(time.Hour))))

	got, err := l.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, at.Add(time.Hour), got[1].CreatedAt)

	require.NoError(t, l.Rewrite(ctx, got[1:]))
	got, err = l.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	require.NoError(t, l.Rewrite(ctx, nil))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestPersistedShape(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "alerts.json")
	l := filelog.New(path)
	require.NoError(t, l.Append(ctx, report("MUPL-1", "MUPL", domain.ReportDanger, time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC))))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var arr []map[string]any
	require.NoError(t, json.Unmarshal(raw, &arr))
	require.Len(t, arr, 1)
	assert.Equal(t, map[string]any{
		"id":        "MUPL-1",
		"region_id": "MUPL",
		"type":      "danger",
		"timestamp": "2024-02-10T08:00:00Z",
	}, arr[0])
}

func TestScan_LegacyTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	legacy := `[
  {"id": "MUPL_1707552000.0", "region_id": "MUPL", "type": "danger", "timestamp": "2024-02-10T08:00:00.000001"}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got, err := filelog.New(path).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2024, 2, 10, 8, 0, 0, 1000, time.UTC), got[0].CreatedAt)
}

func TestScan_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := filelog.New(path).Scan(context.Background())
	assert.ErrorContains(t, err, "decode report log")
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	l := filelog.New(filepath.Join(dir, "alerts.json"))
	for i := range 3 {
		require.NoError(t, l.Append(context.Background(), report(string(rune('a'+i)), "X", domain.ReportSafe, time.Now())))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := filelog.New(filepath.Join(t.TempDir(), "alerts.json")).Append(ctx, report("a", "X", domain.ReportSafe, time.Now()))
	assert.ErrorIs(t, err, context.Canceled)
}
