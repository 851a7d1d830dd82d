package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"courier/pkg/models"
)

const invoicesKey = "invoices"

// kvEntry is one stored JSON document.
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "kv_store"
}

// SQLite stores the collection as a single row of a key-value table.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLite, error) {
	const op = "OpenSQLite"

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%s: failed to create data directory: %w", op, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database %s: %w", op, path, err)
	}

	return NewSQLite(db)
}

// NewSQLite wraps an open database and migrates the table.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	const op = "NewSQLite"

	// A single connection keeps in-memory databases shared between calls.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("%s: failed to migrate: %w", op, err)
	}
	return &SQLite{db: db}, nil
}

// Load implements invoice.Repository.
func (s *SQLite) Load(ctx context.Context) ([]models.Invoice, error) {
	var entry kvEntry
	result := s.db.WithContext(ctx).Where("key = ?", invoicesKey).Limit(1).Find(&entry)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return []models.Invoice{}, nil
	}
	return DecodeInvoices(entry.Value)
}

// Save implements invoice.Repository.
func (s *SQLite) Save(ctx context.Context, invoices []models.Invoice) error {
	data, err := EncodeInvoices(invoices)
	if err != nil {
		return err
	}

	entry := kvEntry{Key: invoicesKey, Value: data, UpdatedAt: time.Now().UTC()}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("failed to save invoices: %w", result.Error)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
