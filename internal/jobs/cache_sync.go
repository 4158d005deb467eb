package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/docscan/internal/model"
)

// DocumentReader is the read side of the document service. GetDocument reads
// through the document cache.
type DocumentReader interface {
	ListDocuments(ctx context.Context) ([]*model.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
}

var _ CronJob = (*CacheSyncTask)(nil)

// CacheSyncTask loads the most recently updated documents into the cache.
type CacheSyncTask struct {
	docs  DocumentReader
	limit int
	cron  string
}

func NewCacheSyncTask(interval string, limit int, docs DocumentReader) *CacheSyncTask {
	return &CacheSyncTask{
		docs:  docs,
		limit: limit,
		cron:  interval,
	}
}

func (c *CacheSyncTask) Schedule() string {
	return c.cron
}

func (c *CacheSyncTask) Run() {
	if _, err := c.Sync(context.Background()); err != nil {
		logrus.Errorf("failed to sync document cache: %v", err)
	}
}

// Sync returns the number of documents loaded.
func (c *CacheSyncTask) Sync(ctx context.Context) (int, error) {
	docs, err := c.docs.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, doc := range docs {
		if synced >= c.limit {
			break
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			continue
		}
		if _, err := c.docs.GetDocument(ctx, id); err != nil {
			logrus.Warnf("failed to cache document %s: %v", doc.ID, err)
			continue
		}
		synced++
	}

	return synced, nil
}
