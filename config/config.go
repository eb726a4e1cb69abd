package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		// A missing .env is fine in development, the process environment still applies
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	GO_ENV string
	PORT   int
	// Database
	DB_DRIVER    string // "pgx" (default) or "postgres" for lib/pq
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	// JWT Configuration
	JWT_SECRET      string
	JWT_ISSUER      string
	JWT_ACCESS_TTL  time.Duration
	JWT_REFRESH_TTL time.Duration
	// Redis Configuration
	REDIS_URL string
	// HTTP
	ALLOWED_ORIGINS     string
	MAX_UPLOAD_MB       int
	RATE_LIMIT_REQUESTS int
	RATE_LIMIT_WINDOW   time.Duration
	// Mail
	APP_NAME           string
	MAIL_BACKEND       string // console, smtp, sendgrid
	DEFAULT_FROM_EMAIL string
	SMTP_HOST          string
	SMTP_PORT          int
	SMTP_USERNAME      string
	SMTP_PASSWORD      string
	SENDGRID_API_KEY   string
	// Media storage
	STORAGE_BACKEND        string // local, spaces
	MEDIA_ROOT             string
	MEDIA_URL              string
	DO_SPACES_ACCESS_KEY   string
	DO_SPACES_SECRET_KEY   string
	DO_SPACES_BUCKET       string
	DO_SPACES_REGION       string
	DO_SPACES_ENDPOINT     string
	DO_SPACES_CDN_ENDPOINT string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	envVariables := &EnviornmentVariable{
		GO_ENV: os.Getenv("GO_ENV"),
		PORT:   port,
		// Database
		DB_DRIVER:    getEnvOrDefault("DB_DRIVER", "pgx"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getEnvOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getEnvOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		// JWT
		JWT_SECRET:      os.Getenv("JWT_SECRET"),
		JWT_ISSUER:      getEnvOrDefault("JWT_ISSUER", "dars-api"),
		JWT_ACCESS_TTL:  getDurationOrDefault("JWT_ACCESS_TTL", 24*time.Hour),
		JWT_REFRESH_TTL: getDurationOrDefault("JWT_REFRESH_TTL", 7*24*time.Hour),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// HTTP
		ALLOWED_ORIGINS:     getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
		MAX_UPLOAD_MB:       getIntOrDefault("MAX_UPLOAD_MB", 500),
		RATE_LIMIT_REQUESTS: getIntOrDefault("RATE_LIMIT_REQUESTS", 100),
		RATE_LIMIT_WINDOW:   getDurationOrDefault("RATE_LIMIT_WINDOW", time.Minute),
		// Mail
		APP_NAME:           getEnvOrDefault("APP_NAME", "Dars"),
		MAIL_BACKEND:       getEnvOrDefault("MAIL_BACKEND", "console"),
		DEFAULT_FROM_EMAIL: getEnvOrDefault("DEFAULT_FROM_EMAIL", "noreply@dars.uz"),
		SMTP_HOST:          getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTP_PORT:          getIntOrDefault("SMTP_PORT", 587),
		SMTP_USERNAME:      os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD:      os.Getenv("SMTP_PASSWORD"),
		SENDGRID_API_KEY:   os.Getenv("SENDGRID_API_KEY"),
		// Media storage
		STORAGE_BACKEND:        getEnvOrDefault("STORAGE_BACKEND", "local"),
		MEDIA_ROOT:             getEnvOrDefault("MEDIA_ROOT", "./media"),
		MEDIA_URL:              getEnvOrDefault("MEDIA_URL", "/media"),
		DO_SPACES_ACCESS_KEY:   os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY:   os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:       os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:       os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:     os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_CDN_ENDPOINT: os.Getenv("DO_SPACES_CDN_ENDPOINT"),
	}

	return envVariables, nil
}

// IsProduction reports whether GO_ENV is set to production
func (e *EnviornmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getIntOrDefault(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
