package config

import (
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres    Postgres
	Telegram    Telegram
	Redis       Redis
	API         API
	Cache       Cache
	Jobs        Jobs
	Backup      Backup
	GoogleDrive GoogleDrive
	S3          S3
	HTTP        HTTP
	Kafka       Kafka
	Scan        Scan
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Telegram struct {
	Token      string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug        bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout      time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	SinaApi      SinaApi
	EastmoneyApi EastmoneyApi
}

type SinaApi struct {
	Url       string  `env:"SINA_API_URL" envDefault:"https://hq.sinajs.cn"`
	Referer   string  `env:"SINA_API_REFERER" envDefault:"https://finance.sina.com.cn"`
	UserAgent string  `env:"SINA_API_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
	RateLimit float64 `env:"SINA_RATE_LIMIT" envDefault:"5"`
	RateBurst int     `env:"SINA_RATE_BURST" envDefault:"5"`
}

type EastmoneyApi struct {
	Url   string `env:"EASTMONEY_API_URL" envDefault:"https://searchapi.eastmoney.com"`
	Token string `env:"EASTMONEY_API_TOKEN" envDefault:"D43BF722C8E33BDC906FB84D85E326E8"`
}

type Cache struct {
	QuoteExpiration time.Duration `env:"CACHE_QUOTE_EXPIRATION" envDefault:"30s"`
}

type Jobs struct {
	ScanInterval  time.Duration `env:"SCAN_JOB_INTERVAL" envDefault:"5m"`
	BackupCrontab string        `env:"BACKUP_JOB_CRONTAB" envDefault:"0 3 * * *"`
}

// Backup selects where report backups go: "drive" or "s3".
type Backup struct {
	Target string `env:"BACKUP_TARGET" envDefault:"drive"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FolderID        string        `env:"GOOGLE_DRIVE_FOLDER_ID" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

type S3 struct {
	Bucket          string        `env:"S3_BUCKET" envDefault:""`
	Region          string        `env:"S3_REGION" envDefault:"us-east-1"`
	Prefix          string        `env:"S3_PREFIX" envDefault:"price-alert-backups/"`
	Endpoint        string        `env:"S3_ENDPOINT" envDefault:""`
	AccessKeyID     string        `env:"S3_ACCESS_KEY_ID" envDefault:""`
	SecretAccessKey string        `env:"S3_SECRET_ACCESS_KEY" envDefault:""`
	FileTTL         time.Duration `env:"S3_FILE_TTL" envDefault:"720h"`
}

type HTTP struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

type Kafka struct {
	Brokers     string `env:"KAFKA_BROKERS" envDefault:""`
	AlertsTopic string `env:"KAFKA_ALERTS_TOPIC" envDefault:"price-alerts"`
}

type Scan struct {
	Concurrency int `env:"SCAN_CONCURRENCY" envDefault:"8"`
}

// MustLoadFile reads envFile if it exists, real environment variables win.
func MustLoadFile(envFile string) *Config {
	_ = godotenv.Load(envFile)

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

// BrokerList splits KAFKA_BROKERS, empty entries are dropped.
func (k Kafka) BrokerList() []string {
	parts := strings.Split(k.Brokers, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
