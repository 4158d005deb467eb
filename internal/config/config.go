// Package config loads the service configuration from .env, DOCSCAN_* variables
// and an optional docscan.yml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const envPrefix = "DOCSCAN"

type Config struct {
	LogLevel string

	DB       DBConfig
	Storage  StorageConfig
	Export   ExportConfig
	Share    ShareConfig
	Jobs     JobsConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Webhook  WebhookConfig
	HTTP     HTTPConfig
}

type DBConfig struct {
	Driver string
	DSN    string
}

type StorageConfig struct {
	Dir         string
	Compression string
}

type ShareConfig struct {
	Dir string
}

type ExportConfig struct {
	Dir       string
	Retention time.Duration
}

type JobsConfig struct {
	SweepSchedule string
	CacheSync     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type OCRConfig struct {
	Engine   string
	Language string
}

type PipelineConfig struct {
	Concurrency int
}

type WebhookConfig struct {
	MaxRetries  uint64
	MaxWait     time.Duration
	Timeout     time.Duration
	AppVersion  string
	DeviceModel string
	UserID      string
}

type HTTPConfig struct {
	Port string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "./.data/docscan.db")
	v.SetDefault("storage.dir", "./.data/blobs")
	v.SetDefault("storage.compression", "nop")
	v.SetDefault("export.dir", "./.data/exports")
	v.SetDefault("export.retention", "168h")
	v.SetDefault("share.dir", "./.data/share")
	v.SetDefault("jobs.sweep_schedule", "@every 1h")
	v.SetDefault("jobs.cache_sync", "@every 10m")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "1h")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "docscan.events")
	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.language", "LATIN")
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("webhook.max_retries", 2)
	v.SetDefault("webhook.max_wait", "2s")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("app.version", "dev")
	v.SetDefault("device.model", "")
	v.SetDefault("user.id", "")
	v.SetDefault("http.port", "4020")
}

// LoadConfig reads the configuration, exiting the process when docscan.yml is
// present but invalid.
func LoadConfig() *Config {
	cfg, err := Load("")
	if err != nil {
		logrus.Fatalf("error loading config: %v", err)
	}
	return cfg
}

// Load reads the configuration; dir is searched for docscan.yml before the
// working directory.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to load .env: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("docscan")
	v.SetConfigType("yml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		LogLevel: v.GetString("log.level"),
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("db.driver")),
			DSN:    v.GetString("db.dsn"),
		},
		Storage: StorageConfig{
			Dir:         v.GetString("storage.dir"),
			Compression: v.GetString("storage.compression"),
		},
		Export: ExportConfig{
			Dir:       v.GetString("export.dir"),
			Retention: v.GetDuration("export.retention"),
		},
		Share: ShareConfig{
			Dir: v.GetString("share.dir"),
		},
		Jobs: JobsConfig{
			SweepSchedule: v.GetString("jobs.sweep_schedule"),
			CacheSync:     v.GetString("jobs.cache_sync"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetString("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		OCR: OCRConfig{
			Engine:   strings.ToLower(v.GetString("ocr.engine")),
			Language: v.GetString("ocr.language"),
		},
		Pipeline: PipelineConfig{
			Concurrency: v.GetInt("pipeline.concurrency"),
		},
		Webhook: WebhookConfig{
			MaxRetries:  v.GetUint64("webhook.max_retries"),
			MaxWait:     v.GetDuration("webhook.max_wait"),
			Timeout:     v.GetDuration("webhook.timeout"),
			AppVersion:  v.GetString("app.version"),
			DeviceModel: v.GetString("device.model"),
			UserID:      v.GetString("user.id"),
		},
		HTTP: HTTPConfig{
			Port: v.GetString("http.port"),
		},
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("unknown log level %q, keeping %s", cfg.LogLevel, logrus.GetLevel())
	}

	return cfg, nil
}

// GetDb opens the configured database, exiting the process on failure.
func GetDb(cfg *Config) *gorm.DB {
	db, err := OpenDB(cfg.DB)
	if err != nil {
		logrus.Fatalf("error opening database: %v", err)
	}
	return db
}

func OpenDB(cfg DBConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch cfg.Driver {
	case "postgres", "postgresql":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case "sqlite", "sqlite3", "":
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}

		dsn := cfg.DSN
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000&_foreign_keys=on"
		}
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)

		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
