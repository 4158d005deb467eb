// Package app constructs every component from the configuration. Nothing in
// the service keeps process-wide state; the App owns it all and closes it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/cache"
	"github.com/emrgen/docscan/internal/compress"
	"github.com/emrgen/docscan/internal/config"
	"github.com/emrgen/docscan/internal/dispatch"
	"github.com/emrgen/docscan/internal/export"
	"github.com/emrgen/docscan/internal/jobs"
	"github.com/emrgen/docscan/internal/metrics"
	"github.com/emrgen/docscan/internal/ocr"
	"github.com/emrgen/docscan/internal/ocr/tesseract"
	"github.com/emrgen/docscan/internal/pipeline"
	"github.com/emrgen/docscan/internal/queue"
	"github.com/emrgen/docscan/internal/queue/kafka"
	"github.com/emrgen/docscan/internal/server"
	"github.com/emrgen/docscan/internal/service"
	"github.com/emrgen/docscan/internal/store"
)

const cacheSyncLimit = 100

type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Store      store.Store
	Blobs      *blob.Store
	Cache      cache.DocumentCache
	Publisher  queue.Publisher
	Engine     ocr.Engine
	Metrics    *metrics.Metrics
	Documents  *service.DocumentService
	Signatures *service.SignatureService
	Scanner    *pipeline.Scanner
	Exporter   *export.Exporter
	Dispatcher *dispatch.Dispatcher
	Tasks      *jobs.TaskExecutor

	closers []func() error
}

// New opens the database and builds the pipeline. The caller must Close the App.
func New(cfg *config.Config) (*App, error) {
	db, err := config.OpenDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{Config: cfg, DB: db}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if err := a.build(); err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) build() error {
	cfg := a.Config

	a.Store = store.NewGormStore(a.DB)
	if err := a.Store.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	codec, err := compress.New(cfg.Storage.Compression)
	if err != nil {
		return err
	}
	a.Blobs = blob.NewStore(cfg.Storage.Dir, codec)
	if err := a.Blobs.EnsureDir(); err != nil {
		return err
	}

	a.Cache = cache.NewNopDocumentCache()
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisDocumentCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, compress.NewGZip())
		if err := redisCache.Ping(context.Background()); err != nil {
			_ = redisCache.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		a.Cache = redisCache
		a.closers = append(a.closers, redisCache.Close)
	}

	a.Publisher = queue.NewNop()
	if cfg.Kafka.Brokers != "" {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		a.Publisher = producer
		a.closers = append(a.closers, producer.Close)
	}

	a.Engine, err = NewEngine(cfg.OCR.Engine)
	if err != nil {
		return err
	}

	a.Metrics, err = metrics.NewMetrics()
	if err != nil {
		return err
	}

	lang := ocr.ParseLanguage(cfg.OCR.Language)

	a.Documents = service.NewDocumentService(a.Store, a.Blobs, a.Cache, a.Publisher)
	a.Signatures = service.NewSignatureService(a.Store, a.Blobs)
	a.Scanner = pipeline.NewScanner(a.Documents, a.Blobs, a.Engine, a.Publisher, a.Metrics, pipeline.Config{
		Language:    lang,
		Concurrency: cfg.Pipeline.Concurrency,
	})
	a.Exporter = export.NewExporter(cfg.Export.Dir, a.Blobs, a.Engine, lang, a.Metrics)
	a.Dispatcher = dispatch.NewDispatcher(dispatch.Config{
		MaxRetries:      cfg.Webhook.MaxRetries,
		MaxWaitInterval: cfg.Webhook.MaxWait,
		Timeout:         cfg.Webhook.Timeout,
		Metadata: dispatch.Metadata{
			AppVersion:  cfg.Webhook.AppVersion,
			DeviceModel: cfg.Webhook.DeviceModel,
			UserID:      cfg.Webhook.UserID,
		},
	}, a.Metrics)

	cronJobs := []jobs.CronJob{
		jobs.NewExportSweeper(cfg.Export.Dir, cfg.Export.Retention, cfg.Jobs.SweepSchedule),
	}
	if cfg.Redis.Addr != "" {
		cronJobs = append(cronJobs, jobs.NewCacheSyncTask(cfg.Jobs.CacheSync, cacheSyncLimit, a.Documents))
	}
	a.Tasks = jobs.NewTaskExecutor(nil, cronJobs)

	return nil
}

// NewEngine selects the OCR engine by name.
func NewEngine(name string) (ocr.Engine, error) {
	switch name {
	case "tesseract", "":
		return tesseract.NewEngine(), nil
	case "noop", "none", "static":
		return ocr.NewStaticEngine(ocr.Result{}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ocr.ErrEngineUnavailable, name)
	}
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if err := errors.Join(errs...); err != nil {
		logrus.Errorf("error closing app: %v", err)
		return err
	}
	return nil
}

// NewServer serves the components of a over HTTP.
func NewServer(a *App) *server.Server {
	return server.New(server.Deps{
		Documents:  a.Documents,
		Signatures: a.Signatures,
		Scanner:    a.Scanner,
		Exporter:   a.Exporter,
		Dispatcher: a.Dispatcher,
		Blobs:      a.Blobs,
		Metrics:    a.Metrics,
		Publisher:  a.Publisher,
		ShareDir:   a.Config.Share.Dir,
	})
}
