package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	JWTSecret    string
	Port         string
	DatabasePath string
	LogLevel     string
	CSRFAuthKey  []byte

	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// PayAnchorDate is the reference paycheck date the biweekly pay-period
	// calendar is derived from (YYYY-MM-DD).
	PayAnchorDate time.Time

	// Allocation defaults applied when a user has not configured a strategy.
	DefaultEmergencyFundTarget float64
	DefaultDiscretionary       float64
	DefaultSavingsPercent      float64

	PlanCacheTTL time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	csrfAuthKeyStr := getEnv("CSRF_AUTH_KEY", "a-very-secure-32-byte-long-key-must-be-32-bytes!")
	if len(csrfAuthKeyStr) < 32 {
		log.Fatalf("FATAL: CSRF_AUTH_KEY must be at least 32 bytes long. Current length: %d", len(csrfAuthKeyStr))
	}

	accessTokenExpiry := getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute)
	refreshTokenExpiry := getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)

	payAnchorStr := getEnv("PAY_ANCHOR_DATE", "2025-11-26")
	payAnchor, err := time.Parse("2006-01-02", payAnchorStr)
	if err != nil {
		log.Printf("WARNING: Invalid PAY_ANCHOR_DATE format '%s'. Using default 2025-11-26. Error: %v", payAnchorStr, err)
		payAnchor = time.Date(2025, time.November, 26, 0, 0, 0, 0, time.UTC)
	}

	Cfg = &AppConfig{
		JWTSecret:    jwtSecret,
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./paydown.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CSRFAuthKey:  []byte(csrfAuthKeyStr),

		AccessTokenExpiry:  accessTokenExpiry,
		RefreshTokenExpiry: refreshTokenExpiry,

		PayAnchorDate: payAnchor,

		DefaultEmergencyFundTarget: getEnvAsFloat("DEFAULT_EMERGENCY_FUND_TARGET", 1000),
		DefaultDiscretionary:       getEnvAsFloat("DEFAULT_DISCRETIONARY_MONTHLY", 750),
		DefaultSavingsPercent:      getEnvAsFloat("DEFAULT_SAVINGS_PERCENT", 0.2),

		PlanCacheTTL: getEnvAsDuration("PLAN_CACHE_TTL", 2*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, PayAnchor=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PayAnchorDate.Format("2006-01-02"))
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
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
	log.Printf("Invalid numeric value for %s ('%s'), using default: %.2f", key, valueStr, fallback)
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
