package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock advisor ---

type mockAdvisor struct {
	reply string
	err   error
	calls int
}

func (m *mockAdvisor) Advise(_ context.Context, _ string, _ AdvisoryContext) (string, error) {
	m.calls++
	return m.reply, m.err
}

var advisoryBatch = []RegionScore{
	{RegionID: "MUPL", RegionName: "Port Louis", Exposure: 90, Vulnerability: 70, Adaptation: 30, ResilienceIndex: 39.5, Category: CategoryLow},
	{RegionID: "MUMO", RegionName: "Moka", Exposure: 40, Vulnerability: 30, Adaptation: 70, ResilienceIndex: 77.5, Category: CategoryHigh},
	{RegionID: "MUGP", RegionName: "Grand Port", Exposure: 85, Vulnerability: 50, Adaptation: 45, ResilienceIndex: 38.25, Category: CategoryLow},
	{RegionID: "MUFL", RegionName: "Flacq", Exposure: 60, Vulnerability: 55, Adaptation: 45, ResilienceIndex: 51.75, Category: CategoryMedium},
}

// --- tests ---

func TestBuildAdvisoryContext(t *testing.T) {
	aggs := map[string]ReportAggregate{
		"MUMO": {DangerCount: 1, SafeCount: 1, TotalCount: 2, DangerRatio: 0.5},
		"MUGP": {DangerCount: 3, TotalCount: 3, DangerRatio: 1},
		"MUFL": {DangerCount: 1, SafeCount: 1, TotalCount: 2, DangerRatio: 0.5},
	}
	actx := BuildAdvisoryContext(advisoryBatch, aggs, 7)

	assert.Equal(t, 4, actx.TotalRegions)
	assert.Equal(t, 7, actx.HazardZones)
	assert.InDelta(t, 51.75, actx.AvgResilience, 1e-9)

	require.Len(t, actx.Regions, 4)
	assert.Equal(t, "MUGP", actx.Regions[0].ID)
	assert.Equal(t, "MUMO", actx.Regions[3].ID)

	require.Len(t, actx.CriticalZones, 2)
	assert.Equal(t, "Grand Port", actx.CriticalZones[0].Name)
	assert.Equal(t, "Very high exposure: major cyclone and flood risk", actx.CriticalZones[0].MainRisk)
	assert.Equal(t, "Critical exposure and fragile infrastructure: priority intervention", actx.CriticalZones[1].MainRisk)

	assert.Len(t, actx.AdaptationGaps, 3)

	require.Len(t, actx.ActiveAlerts, 3)
	assert.Equal(t, "MUGP", actx.ActiveAlerts[0].RegionID)
	assert.Equal(t, "MUFL", actx.ActiveAlerts[1].RegionID, "ties break on region id")
	assert.Equal(t, "MUMO", actx.ActiveAlerts[2].RegionID)
}

func TestBuildAdvisoryContext_Empty(t *testing.T) {
	actx := BuildAdvisoryContext(nil, nil, 0)
	assert.Zero(t, actx.AvgResilience)
	assert.NotNil(t, actx.CriticalZones)
	assert.NotNil(t, actx.ActiveAlerts)
}

func TestMainRisk(t *testing.T) {
	tests := []struct {
		e, v, a float64
		want    string
	}{
		{90, 70, 50, "Critical exposure and fragile infrastructure: priority intervention"},
		{90, 50, 50, "Very high exposure: major cyclone and flood risk"},
		{50, 75, 50, "Failing infrastructure: urgent reinforcement"},
		{50, 50, 30, "Insufficient adaptation capacity: training and equipment required"},
		{50, 50, 50, "Moderate risk: continuous monitoring"},
	}
	for _, tt := range tests {
		got := MainRisk(RegionScore{Exposure: tt.e, Vulnerability: tt.v, Adaptation: tt.a})
		assert.Equal(t, tt.want, got)
	}
}

func TestParseAdvisorReply(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare json", `{"scope":"X","executive_summary":"ok"}`},
		{"json fence", "```json\n{\"scope\":\"X\",\"executive_summary\":\"ok\"}\n```"},
		{"plain fence with prose", "Here you go:\n```\n{\"scope\":\"X\",\"executive_summary\":\"ok\"}\n```\nThanks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAdvisorReply(tt.input)
			require.NoError(t, err)
			assert.Equal(t, "X", got.Scope)
			assert.Equal(t, "ok", got.ExecutiveSummary)
		})
	}
}

func TestParseAdvisorReply_Malformed(t *testing.T) {
	_, err := ParseAdvisorReply("not json at all")
	assert.Error(t, err)

	_, err = ParseAdvisorReply(`{"scope":"X"}`)
	assert.Error(t, err)
}

func TestPrepareReport_UsesAdvisor(t *testing.T) {
	adv := &mockAdvisor{reply: "```json\n{\"executive_summary\":\"all clear\"}\n```"}
	actx := BuildAdvisoryContext(advisoryBatch, nil, 0)

	got := PrepareReport(context.Background(), adv, IslandWideScope, actx, discardLogger())
	assert.Equal(t, 1, adv.calls)
	assert.Equal(t, SourceAdvisor, got.Source)
	assert.Equal(t, "all clear", got.ExecutiveSummary)
	assert.Equal(t, IslandWideScope, got.Scope)
}

func TestPrepareReport_FallsBack(t *testing.T) {
	actx := BuildAdvisoryContext(advisoryBatch, nil, 0)
	want := FallbackReport(actx, IslandWideScope)

	tests := []struct {
		name    string
		advisor Advisor
	}{
		{"nil advisor", nil},
		{"advisor error", &mockAdvisor{err: errors.New("timeout")}},
		{"malformed reply", &mockAdvisor{reply: "I cannot help with that"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrepareReport(context.Background(), tt.advisor, IslandWideScope, actx, discardLogger())
			assert.Equal(t, want, got)
			assert.Equal(t, SourceFallback, got.Source)
		})
	}
}

func TestFallbackReport(t *testing.T) {
	actx := BuildAdvisoryContext(advisoryBatch, nil, 0)
	got := FallbackReport(actx, ReportScope("Port Louis"))

	assert.Equal(t, "Region: Port Louis", got.Scope)
	assert.Equal(t, "ELEVATED", got.ThreatAssessment.SeverityLevel)
	assert.Equal(t, []string{"Grand Port", "Port Louis", "Flacq"}, got.EvacuationPriorities)
	assert.Equal(t, ResourceAllocation{
		Helicopters:       2,
		Ambulances:        8,
		RescueTeams:       5,
		Boats:             2,
		EmergencyShelters: 3,
	}, got.ResourceAllocation)
	assert.Len(t, got.RegionSpecificAdvice, 3)
	assert.Contains(t, got.ExecutiveSummary, "2 critical zone(s), 1 high-risk zone(s)")
}
