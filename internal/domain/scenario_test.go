package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch(t *testing.T) []RegionScore {
	t.Helper()
	e := newTestEngine(t)
	out, err := e.ScoreBatch([]RegionInput{
		{RegionID: "R1", RegionName: "Port Louis", Exposure: Factor(80), Vulnerability: Factor(70), Adaptation: Factor(30)},
		{RegionID: "R2", RegionName: "Curepipe", Exposure: Factor(50), Vulnerability: Factor(40), Adaptation: Factor(60)},
		{RegionID: "R3", RegionName: "Mahebourg", Exposure: Factor(60), Vulnerability: Factor(55), Adaptation: Factor(45)},
	})
	require.NoError(t, err)
	return out
}

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	s, err := NewSimulator(newTestEngine(t), DefaultImpactFactor)
	require.NoError(t, err)
	return s
}

func TestApplyDisaster_ZeroSeverityIsNoop(t *testing.T) {
	batch := sampleBatch(t)
	got, err := newTestSimulator(t).ApplyDisaster(batch, 0)
	require.NoError(t, err)

	if diff := cmp.Diff(batch, got); diff != "" {
		t.Errorf("severity 0 changed the batch (-want +got):\n%s", diff)
	}
}

func TestApplyDisaster_ShiftsExposure(t *testing.T) {
	batch := sampleBatch(t)
	got, err := newTestSimulator(t).ApplyDisaster(batch, 50)
	require.NoError(t, err)

	assert.InDelta(t, 100, got[0].Exposure, 1e-9, "80+25 clamps to 100")
	assert.InDelta(t, 75, got[1].Exposure, 1e-9)
	assert.InDelta(t, 85, got[2].Exposure, 1e-9)

	// R2: 100 - (0.45*75 + 0.35*40 - 0.20*60) = 64.25
	assert.InDelta(t, 64.25, got[1].ResilienceIndex, 1e-9)
	assert.Equal(t, CategoryMedium, got[1].Category)

	assert.Equal(t, batch[1].Vulnerability, got[1].Vulnerability)
	assert.Equal(t, batch[1].Adaptation, got[1].Adaptation)
	assert.InDelta(t, 50, batch[1].Exposure, 1e-9, "input batch untouched")
}

func TestApplyDisaster_Monotonic(t *testing.T) {
	batch := sampleBatch(t)
	sim := newTestSimulator(t)

	prev, err := sim.ApplyDisaster(batch, 0)
	require.NoError(t, err)
	for sev := 5; sev <= 100; sev += 5 {
		next, err := sim.ApplyDisaster(batch, sev)
		require.NoError(t, err)
		for i := range next {
			assert.GreaterOrEqual(t, next[i].Exposure, prev[i].Exposure)
			assert.LessOrEqual(t, next[i].ResilienceIndex, prev[i].ResilienceIndex)
		}
		prev = next
	}
}

func TestApplyDisaster_SeverityOutOfRange(t *testing.T) {
	sim := newTestSimulator(t)
	for _, sev := range []int{-1, 101} {
		_, err := sim.ApplyDisaster(sampleBatch(t), sev)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestNewSimulator_Validation(t *testing.T) {
	_, err := NewSimulator(nil, 0.5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSimulator(newTestEngine(t), -1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSeverityLabel(t *testing.T) {
	tests := []struct {
		severity int
		want     string
	}{
		{0, "No disaster"},
		{1, "Tropical disturbance"},
		{19, "Tropical disturbance"},
		{20, "Tropical depression"},
		{39, "Tropical depression"},
		{40, "Moderate tropical storm"},
		{60, "Severe tropical cyclone"},
		{79, "Severe tropical cyclone"},
		{80, "Intense tropical cyclone"},
		{100, "Intense tropical cyclone"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityLabel(tt.severity), "severity %d", tt.severity)
	}
}
