package config

import (
	"os"
	"strconv"
	"time"

	"tour-booking/internal/geo"
	"tour-booking/internal/services/gateway/yespay"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Payment gateway configuration
	Gateway yespay.Config

	// CallbackSecretHash is the bcrypt hash the webhook shared secret is
	// verified against.
	CallbackSecretHash string

	// Geocoder configuration
	Geocoder geo.GeocoderConfig

	// Booking policy
	CancellationWindow time.Duration
	DepositRate        float64

	// Assignment engine
	AssignmentWorkers int

	// Rate limiting
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   int
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Gateway
		Gateway: yespay.Config{
			BaseURL:     getEnv("YESPAY_BASE_URL", ""),
			PartnerID:   getEnv("YESPAY_PARTNER_ID", ""),
			ClientID:    getEnv("YESPAY_CLIENT_ID", ""),
			ClientKey:   getEnv("YESPAY_CLIENT_KEY", ""),
			HMACKey:     getEnv("YESPAY_HMAC_KEY", ""),
			MerchantID:  getEnv("YESPAY_MERCHANT_ID", ""),
			PNSubKey:    getEnv("YESPAY_PN_SUBKEY", ""),
			PNSubSecret: getEnv("YESPAY_PN_SUBSECRET", ""),
			PNUUID:      getEnv("YESPAY_PN_UUID", ""),
			PNChannel:   getEnv("YESPAY_PN_CHANNEL", ""),
			PNCipherKey: getEnv("YESPAY_PN_CIPHERKEY", ""),
		},
		CallbackSecretHash: getEnv("PAYMENT_CALLBACK_SECRET_HASH", ""),

		// Geocoder
		Geocoder: geo.GeocoderConfig{
			BaseURL: getEnv("GEOCODER_BASE_URL", ""),
			APIKey:  getEnv("GEOCODER_API_KEY", ""),
		},

		// Booking policy
		CancellationWindow: getEnvAsDuration("CANCELLATION_WINDOW", "24h"),
		DepositRate:        getEnvAsFloat("DEPOSIT_RATE", 0.20),

		// Assignment engine
		AssignmentWorkers: getEnvAsInt("ASSIGNMENT_WORKERS", 4),

		// Rate limiting
		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 30),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnvAsInt("METRICS_PORT", 9090),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
