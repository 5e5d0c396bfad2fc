package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration, loaded from the environment.
type Config struct {
	// HTTP
	Port string

	// Persistence. When DBDSN is set the Postgres snapshot store is used,
	// otherwise state is kept in a JSON document at DataFile.
	DataFile     string
	DBDSN        string
	SnapshotName string

	// Sessions
	JWTSecret string
	JWTTTL    time.Duration

	// Eventing / telemetry
	AMQPURL        string
	AMQPExchange   string
	Environment    string
	TracingEnabled bool
}

// Load reads configuration from the environment, with a .env file applied
// first if present.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}

	return Config{
		Port:           getenv("PORT", "5000"),
		DataFile:       getenv("DATA_FILE", "data.json"),
		DBDSN:          getenv("DB_DSN", ""),
		SnapshotName:   getenv("SNAPSHOT_NAME", "blur-chat"),
		JWTSecret:      getenv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:         getdur("JWT_TTL", 24*time.Hour),
		AMQPURL:        getenv("AMQP_URL", ""),
		AMQPExchange:   getenv("AMQP_EXCHANGE", "chat_events"),
		Environment:    getenv("ENVIRONMENT", "development"),
		TracingEnabled: getbool("TRACING_ENABLED", false),
	}
}

func getenv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getdur(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
