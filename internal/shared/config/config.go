package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pet-triage-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	Minio           MinioConfig
	Vision          VisionConfig
	Report          ReportConfig
	ParserStrategy  string
	JWTSecret       string
	JWTIssuer       string
	RateLimit       RateLimitConfig
}

// MinioConfig addresses a self-hosted S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// VisionConfig selects and authenticates the multimodal backend.
type VisionConfig struct {
	Backend  string
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// ReportConfig configures the text-generation backend.
type ReportConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// RateLimitConfig bounds analyze submissions per user.
type RateLimitConfig struct {
	AnalyzePerMinute float64
	Burst            int
}

// Load reads configuration from an optional YAML file and environment variables.
// Environment variables win over file values.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		telemetry.Warn("config.file_ignored", map[string]any{"error": err.Error()})
		file = fileConfig{}
	}

	env := normalizeEnv(getEnv("ENV", or(file.Env, "dev")))
	dbURL := getEnv("DATABASE_URL", file.Database.URL)

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:            getEnv("PORT", or(file.Server.Port, "8080")),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", or(file.Log.Level, "info")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", or(strings.Join(file.Server.CORSAllowOrigins, ","), "http://localhost:3000"))),
		DatabaseURL:     dbURL,
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", or(file.Storage.Type, "local"))),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", or(file.Storage.LocalDir, "./data")),
		AWSRegion:       getEnv("AWS_REGION", file.Storage.S3.Region),
		S3Bucket:        getEnv("S3_BUCKET", file.Storage.S3.Bucket),
		S3Prefix:        getEnv("S3_PREFIX", or(file.Storage.S3.Prefix, "poop-images")),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", file.Storage.S3.KMSKeyID),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", file.Storage.Minio.Endpoint),
			AccessKey: getEnv("MINIO_ACCESS_KEY", file.Storage.Minio.AccessKey),
			SecretKey: getEnv("MINIO_SECRET_KEY", file.Storage.Minio.SecretKey),
			Bucket:    getEnv("MINIO_BUCKET", or(file.Storage.Minio.Bucket, "pet-images")),
			Region:    getEnv("MINIO_REGION", file.Storage.Minio.Region),
			UseSSL:    getBool("MINIO_USE_SSL", file.Storage.Minio.UseSSL),
		},
		Vision: VisionConfig{
			Backend:  getEnv("VISION_BACKEND", file.Vision.Backend),
			Endpoint: getEnv("VISION_API_ENDPOINT", getEnv("QWEN_API_ENDPOINT", file.Vision.Endpoint)),
			APIKey:   getEnv("VISION_API_KEY", getEnv("QWEN_API_KEY", file.Vision.APIKey)),
			Model:    getEnv("VISION_MODEL", file.Vision.Model),
			Timeout:  getSeconds("VISION_TIMEOUT_SECONDS", or(file.Vision.TimeoutSeconds, "60")),
		},
		Report: ReportConfig{
			APIKey:   getEnv("OPENAI_API_KEY", file.Report.APIKey),
			BaseURL:  getEnv("OPENAI_BASE_URL", file.Report.BaseURL),
			Model:    getEnv("REPORT_MODEL", or(file.Report.Model, "gpt-3.5-turbo")),
			Language: normalizeLanguage(getEnv("REPORT_LANGUAGE", file.Report.Language)),
			Timeout:  getSeconds("REPORT_TIMEOUT_SECONDS", or(file.Report.TimeoutSeconds, "45")),
		},
		ParserStrategy: strings.ToLower(getEnv("PARSER_STRATEGY", or(file.Parser.Strategy, "keyword"))),
		JWTSecret:      getEnv("JWT_SECRET", file.Auth.JWTSecret),
		JWTIssuer:      getEnv("JWT_ISSUER", file.Auth.JWTIssuer),
		RateLimit: RateLimitConfig{
			AnalyzePerMinute: getFloat("RATE_LIMIT_ANALYZE_PER_MINUTE", or(file.RateLimit.AnalyzePerMinute, "6")),
			Burst:            int(getFloat("RATE_LIMIT_BURST", or(file.RateLimit.Burst, "3"))),
		},
	}
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		telemetry.Warn("config.invalid_bool", map[string]any{"key": key, "error": err.Error()})
		return def
	}
	return parsed
}

func getSeconds(key, def string) time.Duration {
	raw := getEnv(key, def)
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		telemetry.Warn("config.invalid_seconds", map[string]any{"key": key, "value": raw})
		parsed, _ = strconv.Atoi(def)
	}
	return time.Duration(parsed) * time.Second
}

func getFloat(key, def string) float64 {
	raw := getEnv(key, def)
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		telemetry.Warn("config.invalid_number", map[string]any{"key": key, "value": raw})
		parsed, _ = strconv.ParseFloat(def, 64)
	}
	return parsed
}

func or(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
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
	case "development", "dev":
		return "dev"
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

func normalizeLanguage(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "en", "en-us", "english":
		return "en"
	default:
		return "zh"
	}
}
