package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Bearer tokens are issued by the auth provider and verified here with the shared secret.
	JWTSecret         string
	AccessTokenExpiry time.Duration

	MaxUploadSizeBytes int64
	MaxRows            int

	AllowedOrigins []string
	CacheTTL       time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	RequireSubscription bool

	WhopWebhookSecret string
	WhopAPIKey        string
	WhopAPIBaseURL    string
	WhopProductID     string
}

var Cfg *AppConfig

const defaultJWTSecret = "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes"

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)
	if jwtSecret == defaultJWTSecret {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	whopWebhookSecret := getEnv("WHOP_WEBHOOK_SECRET", "")
	if whopWebhookSecret == "" {
		log.Println("WARNING: WHOP_WEBHOOK_SECRET not set. Webhook signatures will not be verified.")
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./tidyguru.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:         jwtSecret,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),

		MaxUploadSizeBytes: getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", 10*1024*1024),
		MaxRows:            getEnvAsInt("MAX_ROWS", 50000),

		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		CacheTTL:       getEnvAsDuration("CACHE_TTL", 15*time.Minute),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),

		RequireSubscription: getEnvAsBool("REQUIRE_SUBSCRIPTION", false),

		WhopWebhookSecret: whopWebhookSecret,
		WhopAPIKey:        getEnv("WHOP_API_KEY", ""),
		WhopAPIBaseURL:    getEnv("WHOP_API_BASE_URL", "https://api.whop.com/api/v5"),
		WhopProductID:     getEnv("WHOP_PRODUCT_ID", ""),
	}

	if Cfg.MaxRows <= 0 {
		log.Printf("WARNING: MAX_ROWS must be positive, got %d. Using default 50000.", Cfg.MaxRows)
		Cfg.MaxRows = 50000
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, MaxRows=%d, RequireSubscription=%t",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.MaxRows, Cfg.RequireSubscription)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func getEnvAsList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
