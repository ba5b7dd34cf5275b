// Package history is the bot's idempotency ledger: an append-only record of
// which action has already been performed on which resource. A duplicate
// insert is the expected "already recorded" signal, never an error.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Store interface {
	// Count returns how many times (url, action) has been recorded: 0 or 1.
	Count(ctx context.Context, url, action string) (int, error)
	// Record inserts (url, action). Recording an existing pair is a no-op.
	Record(ctx context.Context, url, action string) error
}

// NewStore selects a backend by connection string scheme:
//
//   - "mem://" for an in-process map (wiped on restart)
//   - "redis://..." for redis
//   - "sqlite://path", "sqlite=path", "postgres://...", "postgresql://...",
//     or "postgres=DSN" for a gorm-backed SQL store
func NewStore(dburl string, logger *slog.Logger) (Store, error) {
	switch {
	case dburl == "mem://":
		return NewMemStore(), nil
	case strings.HasPrefix(dburl, "redis://"), strings.HasPrefix(dburl, "rediss://"):
		return NewRedisStore(dburl)
	default:
		return NewGormStore(dburl, logger)
	}
}

type HistoryEntry struct {
	URL    string `gorm:"primaryKey"`
	Action string `gorm:"primaryKey"`
	Time   time.Time
}

func (HistoryEntry) TableName() string {
	return "history"
}

type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewGormStore opens a sqlite or postgres database, selected by URL prefix,
// and migrates the history table.
func NewGormStore(dburl string, logger *slog.Logger) (*GormStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var dial gorm.Dialector
	isSqlite := false
	if strings.HasPrefix(dburl, "sqlite://") {
		sqliteSuffix := dburl[len("sqlite://"):]
		// if this isn't ":memory:", ensure that directory exists (eg, if db
		// file is being initialized)
		if !strings.Contains(sqliteSuffix, ":memory:") {
			os.MkdirAll(filepath.Dir(sqliteSuffix), os.ModePerm)
		}
		dial = sqlite.Open(sqliteSuffix)
		isSqlite = true
	} else if strings.HasPrefix(dburl, "sqlite=") {
		sqliteSuffix := dburl[len("sqlite="):]
		if !strings.Contains(sqliteSuffix, ":memory:") {
			os.MkdirAll(filepath.Dir(sqliteSuffix), os.ModePerm)
		}
		dial = sqlite.Open(sqliteSuffix)
		isSqlite = true
	} else if strings.HasPrefix(dburl, "postgresql://") || strings.HasPrefix(dburl, "postgres://") {
		// can pass entire URL, with prefix, to gorm driver
		dial = postgres.Open(dburl)
	} else if strings.HasPrefix(dburl, "postgres=") {
		dsn := dburl[len("postgres="):]
		dial = postgres.Open(dsn)
	} else {
		return nil, fmt.Errorf("unsupported or unrecognized history database URL: %s", dburl)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(slogGorm.WithHandler(logger.Handler())),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	if isSqlite {
		sqldb.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, err
		}
		if err := db.Exec("PRAGMA synchronous=normal;").Error; err != nil {
			return nil, err
		}
	} else {
		sqldb.SetMaxOpenConns(8)
		sqldb.SetConnMaxIdleTime(time.Hour)
	}

	if err := db.AutoMigrate(&HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("migrating history table: %w", err)
	}

	return &GormStore{db: db, logger: logger.With("subsystem", "history")}, nil
}

func (s *GormStore) Count(ctx context.Context, url, action string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&HistoryEntry{}).
		Where("url = ? AND action = ?", url, action).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *GormStore) Record(ctx context.Context, url, action string) error {
	entry := HistoryEntry{URL: url, Action: action, Time: time.Now()}
	err := s.db.WithContext(ctx).Create(&entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logger.Debug("history entry already recorded", "url", url, "action", action)
		return nil
	}
	return err
}
