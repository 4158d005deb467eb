package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/docscan/internal/model"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	at := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestExportSweeper_Sweep(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, filepath.Join(dir, "doc-a", "old.pdf"), 48*time.Hour)
	writeAged(t, filepath.Join(dir, "doc-a", "scan_page_1.jpg"), 49*time.Hour)
	writeAged(t, filepath.Join(dir, "doc-b", "old.txt"), 72*time.Hour)
	writeAged(t, filepath.Join(dir, "doc-b", "fresh.txt"), time.Minute)

	sweeper := NewExportSweeper(dir, 24*time.Hour, "@every 1h")
	removed, err := sweeper.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, err = os.Stat(filepath.Join(dir, "doc-a"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "doc-b", "fresh.txt"))
	assert.NoError(t, err)
}

func TestExportSweeper_MissingDir(t *testing.T) {
	removed, err := NewExportSweeper(filepath.Join(t.TempDir(), "none"), time.Hour, "@every 1h").Sweep()
	assert.NoError(t, err)
	assert.Zero(t, removed)
}

type fakeReader struct {
	docs []*model.Document
	got  []string
}

func (f *fakeReader) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	return f.docs, nil
}

func (f *fakeReader) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	f.got = append(f.got, id.String())
	return &model.Document{ID: id.String()}, nil
}

func TestCacheSyncTask_Sync(t *testing.T) {
	reader := &fakeReader{}
	for i := 0; i < 5; i++ {
		reader.docs = append(reader.docs, &model.Document{ID: uuid.New().String()})
	}

	synced, err := NewCacheSyncTask("@every 1m", 3, reader).Sync(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, 3, synced)
	assert.Equal(t, []string{reader.docs[0].ID, reader.docs[1].ID, reader.docs[2].ID}, reader.got)
}

type countingJob struct {
	runs atomic.Int32
}

func (c *countingJob) Schedule() string {
	return "@every 1s"
}

func (c *countingJob) Run() {
	c.runs.Add(1)
}

func TestTaskExecutor_Run(t *testing.T) {
	job := &countingJob{}
	executor := NewTaskExecutor(nil, []CronJob{job})
	require.NoError(t, executor.Run())
	defer executor.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

type badJob struct{}

func (badJob) Schedule() string { return "not a schedule" }
func (badJob) Run()             {}

func TestTaskExecutor_InvalidSchedule(t *testing.T) {
	assert.Error(t, NewTaskExecutor(nil, []CronJob{badJob{}}).Run())
}
