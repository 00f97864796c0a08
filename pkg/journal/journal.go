// Package journal records every provisioning step in a database so that
// changes made to the filesystem can be audited after the fact.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Outcome is the result of a provisioning step.
type Outcome string

const (
	// OutcomeApplied means the external command ran successfully.
	OutcomeApplied Outcome = "applied"
	// OutcomePlanned means the step was confirmed but dry-run suppressed it.
	OutcomePlanned Outcome = "planned"
	// OutcomeSkipped means the directory was already in the desired state.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDeclined means the operator answered no.
	OutcomeDeclined Outcome = "declined"
	// OutcomeFailed means the step returned an error.
	OutcomeFailed Outcome = "failed"
)

// Entry is one journaled step.
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"id" yaml:"id"`
	RunID     string    `gorm:"size:36;index" json:"run_id" yaml:"run_id"`
	Time      time.Time `gorm:"index" json:"time" yaml:"time"`
	Operation string    `gorm:"size:32" json:"operation" yaml:"operation"`
	Action    string    `gorm:"size:32" json:"action" yaml:"action"`
	Path      string    `gorm:"index" json:"path" yaml:"path"`
	Command   string    `json:"command,omitempty" yaml:"command,omitempty"`
	DryRun    bool      `json:"dry_run" yaml:"dry_run"`
	Outcome   Outcome   `gorm:"size:16;index" json:"outcome" yaml:"outcome"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// TableName overrides the gorm default.
func (Entry) TableName() string {
	return "journal_entries"
}

// Filter selects journal entries for List.
type Filter struct {
	// Limit caps the number of entries; zero means no limit.
	Limit int
	// Path restricts entries to one directory.
	Path string
	// RunID restricts entries to one run.
	RunID string
	// Outcome restricts entries to one outcome.
	Outcome Outcome
}

// Store is the gorm-backed journal. A nil *Store is valid and records nothing.
type Store struct {
	db *gorm.DB
}

// New opens the journal database and migrates its schema.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid journal configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(config.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	return &Store{db: db}, nil
}

// Open returns a Store for an enabled config and nil otherwise.
func Open(config *Config) (*Store, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}
	return New(config)
}

// Record appends an entry. Time defaults to now.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if s == nil {
		return nil
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// List returns entries matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}

	q := s.db.WithContext(ctx).Model(&Entry{})
	if f.Path != "" {
		q = q.Where("path = ?", f.Path)
	}
	if f.RunID != "" {
		q = q.Where("run_id = ?", f.RunID)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var entries []Entry
	if err := q.Order("time DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
