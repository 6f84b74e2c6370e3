package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	FirebaseProject string
	StorageBucket   string
	AllowedOrigins  []string

	// Service account credentials: inline JSON wins over the file path.
	CredentialsJSON string
	CredentialsPath string

	FeePercent float64
	MinFee     float64
	MaxFee     float64
	Currency   string

	DailyTransactionLimit int
	AutoReleaseAfter      time.Duration
	OfferSweepInterval    time.Duration
	EscrowSweepInterval   time.Duration

	GatewayMode          string // razorpay, sandbox
	GatewayBaseURL       string
	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers     []string
	EmailTopic       string
	EventTopic       string
	WorkerCount      int
	WorkerMaxRetries int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
		AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", nil),
		CredentialsJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		CredentialsPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		FeePercent: getEnvAsFloat("PLATFORM_FEE_PERCENT", 5),
		MinFee:     getEnvAsFloat("PLATFORM_FEE_MIN", 100),
		MaxFee:     getEnvAsFloat("PLATFORM_FEE_MAX", 5000),
		Currency:   getEnv("DEFAULT_CURRENCY", "INR"),

		DailyTransactionLimit: int(getEnvAsInt64("DAILY_TRANSACTION_LIMIT", 5)),
		AutoReleaseAfter:      time.Duration(getEnvAsInt64("AUTO_RELEASE_HOURS", 72)) * time.Hour,
		OfferSweepInterval:    getEnvAsDuration("OFFER_SWEEP_INTERVAL", 5*time.Minute),
		EscrowSweepInterval:   getEnvAsDuration("ESCROW_SWEEP_INTERVAL", 10*time.Minute),

		GatewayMode:          getEnv("PAYMENT_GATEWAY_MODE", "sandbox"),
		GatewayBaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		GatewayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		GatewayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		GatewayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       int(getEnvAsInt64("REDIS_DB", 0)),

		KafkaBrokers:     getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
		EmailTopic:       getEnv("KAFKA_EMAIL_TOPIC", "transactional-emails"),
		EventTopic:       getEnv("KAFKA_EVENT_TOPIC", "transaction-events"),
		WorkerCount:      int(getEnvAsInt64("SIDE_EFFECT_WORKERS", 4)),
		WorkerMaxRetries: int(getEnvAsInt64("SIDE_EFFECT_MAX_RETRIES", 3)),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
