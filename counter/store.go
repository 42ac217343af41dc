package counter

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists per-file download tallies in a single sqlite table.
type Store struct {
	log logrus.FieldLogger
	db  *gorm.DB
}

// OpenStore opens (or creates) the sqlite database at path and migrates the
// downloads table.
func OpenStore(path string, log logrus.FieldLogger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	if err := db.AutoMigrate(&Download{}); err != nil {
		return nil, fmt.Errorf("migrating downloads table: %w", err)
	}
	return &Store{
		log: log.WithField("component", "store"),
		db:  db,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	s.db = nil
	return err
}

// Watermark returns the most recent timestamp across all rows, or the zero
// time when the table is empty. Callers take this snapshot once per run and
// accept only events strictly newer than it.
func (s *Store) Watermark() (time.Time, error) {
	var stamps []time.Time
	if err := s.db.Model(&Download{}).Pluck("timestamp", &stamps).Error; err != nil {
		return time.Time{}, fmt.Errorf("reading watermark: %w", err)
	}
	var recent time.Time
	for _, ts := range stamps {
		if ts.After(recent) {
			recent = ts
		}
	}
	return recent, nil
}

// RecordEvent applies one accepted download event: an existing row gets its
// timestamp replaced and total incremented by one, a new filename is inserted
// with total 1. The update and the insert-if-absent run in one transaction so
// the pair behaves as a single upsert.
func (s *Store) RecordEvent(filename string, ts time.Time) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Download{}).
			Where("filename = ?", filename).
			Updates(map[string]any{
				"timestamp": ts,
				"total":     gorm.Expr("total + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&Download{
			Filename:  filename,
			Timestamp: ts,
			Total:     1,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("recording event for %q: %w", filename, err)
	}
	return nil
}

// Reinitialize drops the downloads table and recreates it empty. Used only by
// the bulk backfill mode; all history is lost.
func (s *Store) Reinitialize() error {
	if s.db.Migrator().HasTable(&Download{}) {
		if err := s.db.Migrator().DropTable(&Download{}); err != nil {
			return fmt.Errorf("dropping downloads table: %w", err)
		}
	}
	if err := s.db.AutoMigrate(&Download{}); err != nil {
		return fmt.Errorf("recreating downloads table: %w", err)
	}
	s.log.Debug("downloads table reinitialized")
	return nil
}

// Snapshot returns every row in primary-key order.
func (s *Store) Snapshot() ([]Download, error) {
	var rows []Download
	if err := s.db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading downloads table: %w", err)
	}
	return rows, nil
}

// Vacuum compacts the database file. Runs skip this when they accepted no
// events so that a no-op run leaves the file untouched.
func (s *Store) Vacuum() error {
	if err := s.db.Exec("VACUUM").Error; err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}
