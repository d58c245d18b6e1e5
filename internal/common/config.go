package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Log         LogConfig
	Database    DatabaseConfig
	Server      ServerConfig
	AWS         AWSConfig
	Storage     StorageConfig
	Recognition RecognitionConfig
	Cache       CacheConfig
	NER         NERConfig
	LLM         LLMConfig
	Queue       QueueConfig
	Telemetry   TelemetryConfig
}

// LogConfig selects the slog handler and level
type LogConfig struct {
	Format string // json|text
	Level  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// AWSConfig holds the AWS region used by textract, s3 and sqs clients
type AWSConfig struct {
	Region string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Type      string // s3|minio
	Bucket    string
	Prefix    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// RecognitionConfig holds OCR backend and polling configuration
type RecognitionConfig struct {
	Backend        string // textract|replay
	ReplayDir      string
	PollInterval   time.Duration
	MaxWait        time.Duration
	RateLimitTPS   float64
	RateLimitBurst int
	TokenSeparator string
}

// CacheConfig holds the terminal-result cache configuration
type CacheConfig struct {
	Backend  string // memory|redis|none
	RedisURL string
	TTL      time.Duration
}

// NERConfig selects the statistical recognizer
type NERConfig struct {
	Backend string // prose|openai
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// QueueConfig holds SQS worker configuration
type QueueConfig struct {
	InputURL       string
	OutputURL      string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// TelemetryConfig turns on OTLP trace export; the exporter reads OTEL_EXPORTER_OTLP_* itself
type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
}

// LoadConfig loads configuration from environment variables, reading .env first when present
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config.dotenv.failed", "err", err)
	}

	return &Config{
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "json"),
			Level:  getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":8081"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		AWS: AWSConfig{
			Region: getEnv("AWS_REGION", "us-east-1"),
		},
		Storage: StorageConfig{
			Type:      getEnv("STORAGE_TYPE", "s3"),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			Prefix:    getEnv("STORAGE_PREFIX", "uploads"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", true),
		},
		Recognition: RecognitionConfig{
			Backend:        getEnv("RECOGNITION_BACKEND", "textract"),
			ReplayDir:      getEnv("RECOGNITION_REPLAY_DIR", "./testdata/replay"),
			PollInterval:   getEnvAsDuration("RECOGNITION_POLL_INTERVAL", 5*time.Second),
			MaxWait:        getEnvAsDuration("RECOGNITION_MAX_WAIT", 5*time.Minute),
			RateLimitTPS:   getEnvAsFloat64("RECOGNITION_RATE_TPS", 1),
			RateLimitBurst: getEnvAsInt("RECOGNITION_RATE_BURST", 2),
			TokenSeparator: os.Getenv("RECOGNITION_TOKEN_SEPARATOR"),
		},
		Cache: CacheConfig{
			Backend:  getEnv("CACHE_BACKEND", "memory"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
			TTL:      getEnvAsDuration("CACHE_TTL", 30*time.Minute),
		},
		NER: NERConfig{
			Backend: getEnv("NER_BACKEND", "prose"),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Queue: QueueConfig{
			InputURL:       getEnv("SQS_INPUT_URL", ""),
			OutputURL:      getEnv("SQS_OUTPUT_URL", ""),
			Workers:        getEnvAsInt("QUEUE_WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 10*time.Minute),
		},
		Telemetry: TelemetryConfig{
			Enabled:     getEnvAsBool("TELEMETRY", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "form-extractor"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the backend-dependent requirements of the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("RECOGNITION_BACKEND", c.Recognition.Backend, OneOf("textract", "replay"))
	v.Field("STORAGE_TYPE", c.Storage.Type, OneOf("s3", "minio"))
	v.Field("CACHE_BACKEND", c.Cache.Backend, OneOf("", "none", "memory", "redis"))
	v.Field("NER_BACKEND", c.NER.Backend, OneOf("", "prose", "openai"))
	v.Field("LOG_FORMAT", strings.ToLower(c.Log.Format), OneOf("", "json", "text"))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}

	switch c.Recognition.Backend {
	case "textract":
		if c.Storage.Bucket == "" {
			return NewAppError("CONFIG_ERROR", "STORAGE_BUCKET is required for the textract backend", ErrInvalidInput)
		}
		if c.Storage.Type != "s3" {
			return NewAppError("CONFIG_ERROR", "textract reads documents from s3; STORAGE_TYPE must be s3", ErrInvalidInput)
		}
	case "replay":
		if c.Recognition.ReplayDir == "" {
			return NewAppError("CONFIG_ERROR", "RECOGNITION_REPLAY_DIR is required for the replay backend", ErrInvalidInput)
		}
	}
	if c.Storage.Type == "minio" && c.Storage.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "STORAGE_ENDPOINT is required for minio", ErrInvalidInput)
	}
	if c.Recognition.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "RECOGNITION_POLL_INTERVAL must be positive", ErrInvalidInput)
	}
	if c.Recognition.MaxWait < c.Recognition.PollInterval {
		return NewAppError("CONFIG_ERROR", "RECOGNITION_MAX_WAIT must cover at least one poll interval", ErrInvalidInput)
	}
	if c.NER.Backend == "openai" && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required for the openai recognizer", ErrInvalidInput)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return NewAppError("CONFIG_ERROR", "REDIS_URL is required for the redis cache", ErrInvalidInput)
	}
	return nil
}

// NewLogger builds the process logger from the log configuration
func NewLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
