package reports

import (
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
)

// MemoryLog is an in-process Log for tests and ephemeral runs.
type MemoryLog struct {
	mu      sync.Mutex
	reports []domain.CitizenReport
}

// NewMemoryLog returns a log seeded with a copy of reports.
func NewMemoryLog(reports ...domain.CitizenReport) *MemoryLog {
	return &MemoryLog{reports: slices.Clone(reports)}
}

func (m *MemoryLog) Append(_ context.Context, r domain.CitizenReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *MemoryLog) Scan(_ context.Context) ([]domain.CitizenReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.reports), nil
}

func (m *MemoryLog) Rewrite(_ context.Context, reports []domain.CitizenReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = slices.Clone(reports)
	return nil
}
