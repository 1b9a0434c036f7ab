package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// JudgeConfig holds settings for the external judgment service (Gemini).
type JudgeConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// SecurityConfig holds the locally-owned policy constants for viewing
// sessions. Thresholds live here, not only inside the judge prompt text,
// so policy changes are explicit configuration changes.
type SecurityConfig struct {
	// WarnThreshold is the number of right-click attempts tolerated before
	// the policy escalates from WARNING to TERMINATE.
	WarnThreshold int
	// WarnRevert is how long a session stays WARNED before reverting to ACTIVE.
	WarnRevert time.Duration
	// TickInterval is the expiry clock resolution.
	TickInterval time.Duration
	// DefaultLifetimeMin applies when an upload omits expiresIn.
	DefaultLifetimeMin int
	// MaxUploadFiles caps files accepted per upload request.
	MaxUploadFiles int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port     string
	ShareURL string // base URL for generated view links
	Database DatabaseConfig
	MinIO    MinIOConfig
	Judge    JudgeConfig
	Security SecurityConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:     getEnv("PORT", "8080"), // default only for non-sensitive value
		ShareURL: getEnv("SHARE_BASE_URL", "http://localhost:8080/view"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Judge: JudgeConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout: getEnvDuration("JUDGE_TIMEOUT", 15*time.Second),
		},
		Security: SecurityConfig{
			WarnThreshold:      getEnvInt("SEC_WARN_THRESHOLD", 3),
			WarnRevert:         getEnvDuration("SEC_WARN_REVERT", 2*time.Second),
			TickInterval:       getEnvDuration("SEC_TICK_INTERVAL", time.Second),
			DefaultLifetimeMin: getEnvInt("SEC_DEFAULT_LIFETIME_MIN", 60),
			MaxUploadFiles:     getEnvInt("SEC_MAX_UPLOAD_FILES", 10),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
