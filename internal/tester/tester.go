package tester

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/compress"
	"github.com/emrgen/docscan/internal/model"
)

var (
	db       *gorm.DB
	testPath string
)

// Setup opens a fresh migrated sqlite database in a temporary directory.
func Setup() {
	RemoveDBFile()

	_ = os.Setenv("ENV", "test")

	var err error
	testPath, err = os.MkdirTemp("", "docscan-test-*")
	if err != nil {
		panic(err)
	}

	err = os.MkdirAll(filepath.Join(testPath, "db"), os.ModePerm)
	if err != nil {
		panic(err)
	}

	dsn := filepath.Join(testPath, "db", "docscan.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// one connection serializes sqlite writers
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = model.Migrate(db)
	if err != nil {
		panic(err)
	}
}

func TestDB() *gorm.DB {
	return db
}

// Dir is the temporary directory of the current setup.
func Dir() string {
	return testPath
}

// Blobs returns a blob store inside the temporary directory.
func Blobs() *blob.Store {
	store := blob.NewStore(filepath.Join(testPath, "blobs"), compress.NewNop())
	if err := store.EnsureDir(); err != nil {
		panic(err)
	}
	return store
}

func RemoveDBFile() {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		db = nil
	}

	if testPath == "" {
		return
	}

	err := os.RemoveAll(testPath)
	if err != nil {
		logrus.Warnf("failed to remove test directory: %v", err)
	}
	testPath = ""
}
