package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server needs, loaded once at startup and
// passed into each component's constructor. Components never read the
// environment themselves.
type Config struct {
	Port            string
	MaintenanceMode bool

	DBConnectionString string
	RedisURL           string

	// Identity provider (Firebase secure-token) settings.
	JWKSURL       string
	TokenIssuer   string
	TokenAudience string

	// PayMongo settings.
	PayMongoSecretKey   string
	PayMongoBaseURL     string
	PaymentSuccessURL   string
	PaymentFailedURL    string
	ProviderHTTPTimeout time.Duration
}

// Load reads configuration from the environment. In development a .env file
// is loaded first; in production (RENDER set) it is skipped, matching how the
// process is deployed.
func Load() Config {
	if os.Getenv("RENDER") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: Could not load .env file (this is normal in production)")
		}
	}

	cfg := Config{
		Port:            getEnv("PORT", "8000"),
		MaintenanceMode: getEnvBool("MAINTENANCE_MODE"),

		DBConnectionString: os.Getenv("DB_CONNECTION_STRING"),
		RedisURL:           getEnv("REDIS_URL", "localhost:6379"),

		JWKSURL:       getEnv("IDENTITY_JWKS_URL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"),
		TokenIssuer:   os.Getenv("IDENTITY_TOKEN_ISSUER"),
		TokenAudience: os.Getenv("IDENTITY_TOKEN_AUDIENCE"),

		PayMongoSecretKey:   os.Getenv("PAYMONGO_SECRET_KEY"),
		PayMongoBaseURL:     getEnv("PAYMONGO_BASE_URL", "https://api.paymongo.com"),
		PaymentSuccessURL:   getEnv("PAYMENT_SUCCESS_URL", "https://iskolardev.online/payment-success"),
		PaymentFailedURL:    getEnv("PAYMENT_FAILED_URL", "https://iskolardev.online/payment-failed"),
		ProviderHTTPTimeout: getEnvDuration("PROVIDER_HTTP_TIMEOUT", 10*time.Second),
	}

	if cfg.DBConnectionString == "" {
		log.Panic("DB_CONNECTION_STRING environment variable is required")
	}
	if cfg.PayMongoSecretKey == "" {
		log.Panic("PAYMONGO_SECRET_KEY environment variable is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Warning: invalid %s, using default %s", key, fallback)
	}
	return fallback
}
