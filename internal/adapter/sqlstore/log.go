// Package sqlstore persists citizen reports in an embedded SQLite database through GORM.
package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// reportRecord is the row shape of a citizen report. Seq preserves insertion order.
type reportRecord struct {
	Seq        int64     `gorm:"primaryKey;autoIncrement;column:seq"`
	ID         string    `gorm:"column:id;uniqueIndex;not null"`
	RegionID   string    `gorm:"column:region_id;index;not null"`
	Kind       string    `gorm:"column:kind;not null"`
	ReportedAt time.Time `gorm:"column:reported_at;index;not null"`
}

// TableName returns the GORM table name.
func (reportRecord) TableName() string { return "citizen_reports" }

func toRecord(r domain.CitizenReport) reportRecord {
	return reportRecord{ID: r.ID, RegionID: r.RegionID, Kind: string(r.Kind), ReportedAt: r.CreatedAt.UTC()}
}

func (rec reportRecord) report() domain.CitizenReport {
	return domain.CitizenReport{
		ID:        rec.ID,
		RegionID:  rec.RegionID,
		Kind:      domain.ReportKind(rec.Kind),
		CreatedAt: rec.ReportedAt.UTC(),
	}
}

// Log is a GORM-backed citizen report log.
type Log struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Log, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create report database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open report database: %w", err)
	}

	// SQLite serializes writers anyway; one connection also keeps ":memory:" a single database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("report database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an existing GORM handle and migrates the schema.
func New(db *gorm.DB) (*Log, error) {
	if err := db.AutoMigrate(&reportRecord{}); err != nil {
		return nil, fmt.Errorf("migrate report schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database connection.
func (l *Log) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (l *Log) Append(ctx context.Context, r domain.CitizenReport) error {
	rec := toRecord(r)
	if err := l.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert citizen report: %w", err)
	}
	return nil
}

func (l *Log) Scan(ctx context.Context) ([]domain.CitizenReport, error) {
	var records []reportRecord
	if err := l.db.WithContext(ctx).Order("seq ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list citizen reports: %w", err)
	}

	out := make([]domain.CitizenReport, len(records))
	for i, rec := range records {
		out[i] = rec.report()
	}
	return out, nil
}

// Rewrite replaces every row in a single transaction.
func (l *Log) Rewrite(ctx context.Context, reports []domain.CitizenReport) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&reportRecord{}).Error; err != nil {
			return fmt.Errorf("clear citizen reports: %w", err)
		}
		if len(reports) == 0 {
			return nil
		}

		records := make([]reportRecord, len(reports))
		for i, r := range reports {
			records[i] = toRecord(r)
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("reinsert citizen reports: %w", err)
		}
		return nil
	})
}

// DeleteOlderThan removes reports stamped before cutoff in one statement.
// It bypasses the report store's lock and is meant for offline maintenance.
func (l *Log) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := l.db.WithContext(ctx).Where("reported_at < ?", cutoff.UTC()).Delete(&reportRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old citizen reports: %w", res.Error)
	}
	return res.RowsAffected, nil
}
