package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/thep200/github-ranker/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB satisfies db.Database over an in-memory sqlite handle.
type TestDB struct {
	db *gorm.DB
}

func (t *TestDB) Db() (*gorm.DB, error) {
	return t.db, nil
}

// OpenTestDB opens an in-memory sqlite database and migrates all tables.
func OpenTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Repo{},
		&model.Rank{},
		&model.Activity{},
		&model.CrawlState{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return &TestDB{db: db}
}
