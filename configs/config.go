package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	HTTPPort int

	// DocStoreDriver selects the document backend: postgres, mongo or memory.
	DocStoreDriver string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBNameTest string

	MongoURI string
	MongoDB  string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	CacheTTL      time.Duration

	JWTSecret     string
	EncryptionKey string
	EmailEndpoint string

	LogDir    string
	UploadDir string
	RateLimit int
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		HTTPPort:       getInt("HTTP_PORT", 3004),
		DocStoreDriver: getEnv("DOCSTORE_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getInt("DB_PORT", 10501),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getEnv("DB_NAME", "taskboard"),
		DBNameTest:     getEnv("DB_NAME_TEST", "taskboard_test"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "taskboard"),
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getInt("REDIS_PORT", 6379),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		CacheTTL:       getDuration("CACHE_TTL", time.Hour),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", "MySecretEncryptionKey!"),
		EmailEndpoint:  getEnv("EMAIL_ENDPOINT", "http://localhost:5000/send-email"),
		LogDir:         getEnv("LOG_DIR", "logs"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		RateLimit:      getInt("RATE_LIMIT", 100),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
