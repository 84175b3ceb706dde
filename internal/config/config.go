package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	// Server
	Env       string `yaml:"env"`
	Port      string `yaml:"port"`
	ClientURL string `yaml:"client_url"`

	// Database
	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`
	DBPath     string `yaml:"db_path"`

	// JWT
	JWTSecret        string        `yaml:"jwt_secret"`
	JWTExpirationDur time.Duration `yaml:"jwt_expires_in"`
	ResetTokenTTL    time.Duration `yaml:"reset_token_ttl"`

	// Mail
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     string `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	MailFrom     string `yaml:"mail_from"`

	// Profile image storage
	StorageDriver  string `yaml:"storage_driver"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3PublicURL    string `yaml:"s3_public_url"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Defaults returns a Config populated with development defaults.
func Defaults() *Config {
	return &Config{
		Env:       "development",
		Port:      "8080",
		ClientURL: "http://localhost:5173",

		DBDriver:   "postgres",
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "invoicer",
		DBPassword: "invoicer",
		DBName:     "invoicer",
		DBSSLMode:  "disable",
		DBPath:     "invoicer.db",

		JWTSecret:        "fallback-secret-key-for-dev-only",
		JWTExpirationDur: 24 * time.Hour,
		ResetTokenTTL:    15 * time.Minute,

		SMTPPort: "587",
		MailFrom: "Invoicer <no-reply@invoicer.local>",

		StorageDriver:  "memory",
		S3Bucket:       "profile-pics",
		S3Region:       "us-east-1",
		MaxUploadBytes: 5 << 20,

		LogLevel: "info",
	}
}

// Load loads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally environment variables (which win).
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(config, path); err != nil {
			return nil, err
		}
	}

	// Server
	config.Env = getEnv("ENV", config.Env)
	config.Port = getEnv("PORT", config.Port)
	config.ClientURL = getEnv("CLIENT_URL", config.ClientURL)

	// Database
	config.DBDriver = getEnv("DB_DRIVER", config.DBDriver)
	config.DBHost = getEnv("DB_HOST", config.DBHost)
	config.DBPort = getEnv("DB_PORT", config.DBPort)
	config.DBUser = getEnv("DB_USER", config.DBUser)
	config.DBPassword = getEnv("DB_PASSWORD", config.DBPassword)
	config.DBName = getEnv("DB_NAME", config.DBName)
	config.DBSSLMode = getEnv("DB_SSLMODE", config.DBSSLMode)
	config.DBPath = getEnv("DB_PATH", config.DBPath)

	// JWT
	config.JWTSecret = getEnv("JWT_SECRET", config.JWTSecret)
	config.JWTExpirationDur = getDuration("JWT_EXPIRES_IN", config.JWTExpirationDur)
	config.ResetTokenTTL = getDuration("RESET_TOKEN_TTL", config.ResetTokenTTL)

	// Mail
	config.SMTPHost = getEnv("SMTP_HOST", config.SMTPHost)
	config.SMTPPort = getEnv("SMTP_PORT", config.SMTPPort)
	config.SMTPUser = getEnv("SMTP_USER", config.SMTPUser)
	config.SMTPPassword = getEnv("SMTP_PASSWORD", config.SMTPPassword)
	config.MailFrom = getEnv("MAIL_FROM", config.MailFrom)

	// Storage
	config.StorageDriver = getEnv("STORAGE_DRIVER", config.StorageDriver)
	config.S3Bucket = getEnv("S3_BUCKET", config.S3Bucket)
	config.S3Region = getEnv("S3_REGION", config.S3Region)
	config.S3Endpoint = getEnv("S3_ENDPOINT", config.S3Endpoint)
	config.S3AccessKey = getEnv("S3_ACCESS_KEY", config.S3AccessKey)
	config.S3SecretKey = getEnv("S3_SECRET_KEY", config.S3SecretKey)
	config.S3PublicURL = getEnv("S3_PUBLIC_URL", config.S3PublicURL)
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES value %q", v)
		}
		config.MaxUploadBytes = n
	}

	// Logging
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFile = getEnv("LOG_FILE", config.LogFile)

	if config.Env == "production" && config.JWTSecret == Defaults().JWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return config, nil
}

// loadFile overlays YAML values onto config. Keys absent from the file keep
// their current value.
func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MigrateURL returns the postgres:// URL expected by golang-migrate.
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
