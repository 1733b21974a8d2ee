// Package filelog persists citizen reports as a single JSON array on disk.
//
// The file holds [{id, region_id, type, timestamp}, ...]. A missing or empty
// file is an empty log. Every write replaces the file through a temp file and
// rename, so readers see either the previous array or the new one.
package filelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
)

// Log is a file-backed citizen report log.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a log stored at path. The parent directory is created on first write.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

func (l *Log) Append(ctx context.Context, r domain.CitizenReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reports, err := l.read(ctx)
	if err != nil {
		return err
	}
	return l.write(ctx, append(reports, r))
}

func (l *Log) Scan(ctx context.Context) ([]domain.CitizenReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(ctx)
}

func (l *Log) Rewrite(ctx context.Context, reports []domain.CitizenReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(ctx, reports)
}

func (l *Log) read(ctx context.Context) ([]domain.CitizenReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.CitizenReport{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report log %s: %w", l.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.CitizenReport{}, nil
	}

	var reports []domain.CitizenReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decode report log %s: %w", l.path, err)
	}
	if reports == nil {
		reports = []domain.CitizenReport{}
	}
	return reports, nil
}

func (l *Log) write(ctx context.Context, reports []domain.CitizenReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reports == nil {
		reports = []domain.CitizenReport{}
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report log: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report log dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report log: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write temp report log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error takes precedence
		return fmt.Errorf("sync temp report log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace report log: %w", err)
	}
	return nil
}
