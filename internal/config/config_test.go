package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "./.data/docscan.db", cfg.DB.DSN)
	assert.Equal(t, 168*time.Hour, cfg.Export.Retention)
	assert.Equal(t, "@every 1h", cfg.Jobs.SweepSchedule)
	assert.Equal(t, "LATIN", cfg.OCR.Language)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, uint64(2), cfg.Webhook.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Webhook.MaxWait)
	assert.Equal(t, "4020", cfg.HTTP.Port)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_EnvAndFile(t *testing.T) {
	dir := t.TempDir()
	yml := "pipeline:\n  concurrency: 8\nocr:\n  engine: NOOP\nexport:\n  retention: 2h\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docscan.yml"), []byte(yml), 0644))

	t.Setenv("DOCSCAN_HTTP_PORT", "9090")
	t.Setenv("DOCSCAN_PIPELINE_CONCURRENCY", "2")

	cfg, err := Load(dir)
	require.NoError(t, err)

	// environment wins over the file
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "noop", cfg.OCR.Engine)
	assert.Equal(t, 2*time.Hour, cfg.Export.Retention)
}

func TestOpenDB(t *testing.T) {
	db, err := OpenDB(DBConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "nested", "test.db")})
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = OpenDB(DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}
