package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting. It is loaded once at startup and treated
// as immutable afterwards; components receive the values they need through
// their constructors.
type Config struct {
	ListenPort string

	// SecretKey signs session tokens. Starting without one is a configuration
	// error, not something to paper over with a default.
	SecretKey []byte
	TokenTTL  time.Duration

	DatabasePath string

	ORSAPIKey      string
	GeocodeBaseURL string
	RouteBaseURL   string

	AuthRatePerMinute int
	AuthRateBurst     int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		return nil, errors.New("SECRET_KEY must be set")
	}

	cfg := &Config{
		ListenPort:        getEnv("PORT", "8080"),
		SecretKey:         []byte(secret),
		TokenTTL:          time.Hour,
		DatabasePath:      getEnv("DATABASE_PATH", "users.db"),
		ORSAPIKey:         getEnv("ORS_API_KEY", ""),
		GeocodeBaseURL:    getEnv("GEOCODE_API_URL", "https://api-adresse.data.gouv.fr/search/"),
		RouteBaseURL:      getEnv("ORS_API_URL", "https://api.openrouteservice.org/v2/directions"),
		AuthRatePerMinute: getEnvAsInt("AUTH_RATE_PER_MINUTE", 30),
		AuthRateBurst:     getEnvAsInt("AUTH_RATE_BURST", 10),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
