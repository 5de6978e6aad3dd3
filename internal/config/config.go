package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	SMTP       SMTPConfig
	Ai         AIConfig
	Limits     LimitsConfig
	Escalation EscalationConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AIConfig struct {
	Provider       string // "ollama" or "gemini"
	Model          string
	OllamaBaseURL  string
	GeminiKey      string
	CallTimeout    time.Duration
	BreakerTrips   int // consecutive failures before the circuit opens
	BreakerCooloff time.Duration
}

type LimitsConfig struct {
	RateWindow          time.Duration
	RateMaxPerSession   int
	RateMaxPerIP        int
	MaxActiveSessions   int
	SessionCacheSize    int
	SessionTTL          time.Duration // inactivity TTL: cache eviction + guard pruning
	RetentionTTL        time.Duration // durable storage TTL, after which sessions are gone for good
	FlushInterval       time.Duration
	MaxDirtySessions    int
	LockWait            time.Duration
	ClassifierThreshold float64
}

type EscalationConfig struct {
	WhatsAppNumber  string
	TechnicianEmail string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3001"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3001"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/flow-audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "STI Soporte"),
		},
		Ai: AIConfig{
			Provider:       getEnv("LLM_PROVIDER", "ollama"),
			Model:          getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			CallTimeout:    getEnvAsDuration("AI_CALL_TIMEOUT", 6*time.Second),
			BreakerTrips:   getEnvAsInt("AI_BREAKER_TRIPS", 3),
			BreakerCooloff: getEnvAsDuration("AI_BREAKER_COOLOFF", 30*time.Second),
		},
		Limits: LimitsConfig{
			RateWindow:          getEnvAsDuration("RATE_WINDOW", 60*time.Second),
			RateMaxPerSession:   getEnvAsInt("RATE_MAX_PER_SESSION", 20),
			RateMaxPerIP:        getEnvAsInt("RATE_MAX_PER_IP", 60),
			MaxActiveSessions:   getEnvAsInt("MAX_ACTIVE_SESSIONS", 200),
			SessionCacheSize:    getEnvAsInt("SESSION_CACHE_SIZE", 1000),
			SessionTTL:          getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			RetentionTTL:        getEnvAsDuration("SESSION_RETENTION_TTL", 72*time.Hour),
			FlushInterval:       getEnvAsDuration("SESSION_FLUSH_INTERVAL", 5*time.Second),
			MaxDirtySessions:    getEnvAsInt("SESSION_MAX_DIRTY", 500),
			LockWait:            getEnvAsDuration("SESSION_LOCK_WAIT", 3*time.Second),
			ClassifierThreshold: getEnvAsFloat("CLASSIFIER_THRESHOLD", 0.6),
		},
		Escalation: EscalationConfig{
			WhatsAppNumber:  getEnv("ESCALATION_WHATSAPP_NUMBER", "5493410000000"),
			TechnicianEmail: getEnv("ESCALATION_TECH_EMAIL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
