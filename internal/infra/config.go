package infra

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	StoreDriver string

	// DevUserID and DevUserCredits seed one account when STORE_DRIVER=memory.
	DevUserID      string
	DevUserCredits int

	StorageDriver        string
	StoragePath          string
	StorageBaseURL       string
	ImageSourceAllowlist []string
	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOBucket          string
	MinIOUseSSL          bool
	MinIOPublicURL       string
	SupabaseURL          string
	SupabaseServiceKey   string
	SupabaseBucket       string

	GeminiAPIKey  string
	GeminiBaseURL string
	QwenAPIKey    string
	QwenBaseURL   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIOrg     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string

	GenerationRateLimit  int
	GenerationRateWindow time.Duration
	ThemeRateLimit       int
	ThemeRateWindow      time.Duration
	BatchSizeDefault     int
	BatchSizeMax         int
	BatchParallelism     int
	ProviderRatePerSec   float64
	TaskWorkers          int
	TaskQueueSize        int

	// WorkerInterval is the sweep period of cmd/worker; StaleAfter is the age
	// at which open jobs and themes are considered abandoned.
	WorkerInterval time.Duration
	StaleAfter     time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),

		DevUserID:      getEnv("DEV_USER_ID", "00000000-0000-4000-8000-000000000001"),
		DevUserCredits: getEnvInt("DEV_USER_CREDITS", 50),

		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", "fs")),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		MinIOEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:        getEnv("MINIO_BUCKET", "invitations"),
		MinIOUseSSL:        getEnvBool("MINIO_USE_SSL", false),
		MinIOPublicURL:     os.Getenv("MINIO_PUBLIC_URL"),
		SupabaseURL:        strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", "generated"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		QwenAPIKey:    os.Getenv("QWEN_API_KEY"),
		QwenBaseURL:   getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		GenerationRateLimit:  getEnvInt("GENERATION_RATE_LIMIT", 10),
		GenerationRateWindow: getEnvDuration("GENERATION_RATE_WINDOW_SECONDS", time.Minute),
		ThemeRateLimit:       getEnvInt("THEME_RATE_LIMIT", 5),
		ThemeRateWindow:      getEnvDuration("THEME_RATE_WINDOW_SECONDS", time.Minute),
		BatchSizeDefault:     getEnvInt("BATCH_SIZE_DEFAULT", 4),
		BatchSizeMax:         getEnvInt("BATCH_SIZE_MAX", 8),
		BatchParallelism:     getEnvInt("BATCH_PARALLELISM", 1),
		ProviderRatePerSec:   getEnvFloat("PROVIDER_RATE_PER_SECOND", 2),
		TaskWorkers:          getEnvInt("TASK_WORKERS", 4),
		TaskQueueSize:        getEnvInt("TASK_QUEUE_SIZE", 64),

		WorkerInterval: getEnvDuration("WORKER_INTERVAL_SECONDS", 30*time.Second),
		StaleAfter:     getEnvDuration("STALE_AFTER_SECONDS", 15*time.Minute),
	}

	cfg.ImageSourceAllowlist = buildAllowlist(cfg.StorageBaseURL, os.Getenv("IMAGE_SOURCE_HOST_ALLOWLIST"))

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageDriver {
	case "fs":
	case "minio":
		if cfg.MinIOEndpoint == "" || cfg.MinIOAccessKey == "" || cfg.MinIOSecretKey == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for minio storage")
		}
	case "supabase":
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for supabase storage")
		}
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be fs, minio or supabase, got %q", cfg.StorageDriver)
	}

	if cfg.BatchSizeMax < 1 {
		return nil, fmt.Errorf("BATCH_SIZE_MAX must be positive")
	}
	if cfg.BatchSizeDefault < 1 || cfg.BatchSizeDefault > cfg.BatchSizeMax {
		cfg.BatchSizeDefault = cfg.BatchSizeMax
	}
	if cfg.BatchParallelism < 1 {
		cfg.BatchParallelism = 1
	}
	if cfg.TaskWorkers < 1 {
		cfg.TaskWorkers = 1
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func buildAllowlist(storageBaseURL, extra string) []string {
	set := map[string]struct{}{}
	if u, err := url.Parse(storageBaseURL); err == nil && u.Hostname() != "" {
		set[strings.ToLower(u.Hostname())] = struct{}{}
	}
	for _, host := range strings.Split(extra, ",") {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			set[host] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for host := range set {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration reads a number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
