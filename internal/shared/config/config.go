package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration.
type Config struct {
	Env             string   `env:"ENV" envDefault:"dev"`
	Port            string   `env:"PORT" envDefault:"8080"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	DatabaseURL     string   `env:"DATABASE_URL"`
	RedisURL        string   `env:"REDIS_URL"`
	SQSQueueURL     string   `env:"SQS_QUEUE_URL"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	ExportPrefix    string `env:"EXPORT_PREFIX" envDefault:"exports"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`
	MinIOEndpoint   string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey  string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey  string `env:"MINIO_SECRET_KEY"`
	MinIOBucket     string `env:"MINIO_BUCKET" envDefault:"docuflow"`
	MinIOUseSSL     bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	MaxUploadMB int `env:"MAX_UPLOAD_MB" envDefault:"10"`

	WorkerConcurrency     int           `env:"WORKER_CONCURRENCY" envDefault:"2"`
	PollIntervalMS        int           `env:"POLL_INTERVAL_MS" envDefault:"5000"`
	JobMaxAttempts        int           `env:"JOB_MAX_ATTEMPTS" envDefault:"3"`
	JobRetryBaseDelay     time.Duration `env:"JOB_RETRY_BASE_DELAY" envDefault:"1m"`
	JobRetryMaxDelay      time.Duration `env:"JOB_RETRY_MAX_DELAY" envDefault:"24h"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	StaleJobAfter         time.Duration `env:"STALE_JOB_AFTER" envDefault:"15m"`
	StaleRecoverySchedule string        `env:"STALE_RECOVERY_SCHEDULE" envDefault:"@every 1m"`

	TesseractPath string        `env:"TESSERACT_PATH" envDefault:"tesseract"`
	OCRLang       string        `env:"OCR_LANG" envDefault:"spa"`
	OCRTimeout    time.Duration `env:"OCR_TIMEOUT" envDefault:"2m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	JWTSecret          string `env:"JWT_SECRET"`
	AuthRequired       bool   `env:"AUTH_REQUIRED" envDefault:"false"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL"`
	UIRedirectURL      string `env:"UI_REDIRECT_URL"`

	RateLimitRPS         float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst       int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	UploadRateLimitRPS   float64 `env:"UPLOAD_RATE_LIMIT_RPS" envDefault:"1"`
	UploadRateLimitBurst int     `env:"UPLOAD_RATE_LIMIT_BURST" envDefault:"5"`

	SystemConfigCacheTTL time.Duration `env:"SYSTEM_CONFIG_CACHE_TTL" envDefault:"5m"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.JobMaxAttempts < 1 {
		cfg.JobMaxAttempts = 1
	}
	if cfg.MaxUploadMB < 1 {
		cfg.MaxUploadMB = 10
	}

	if cfg.Env == "production" {
		var missing []string
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			missing = append(missing, "JWT_SECRET")
		}
		if len(missing) > 0 {
			return Config{}, errors.New("required in production: " + strings.Join(missing, ", "))
		}
	}
	return cfg, nil
}

// PollInterval returns the worker poll interval.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
