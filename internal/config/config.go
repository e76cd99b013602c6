package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBadger   = "badger"

	StorageDriverR2   = "r2"
	StorageDriverDisk = "disk"
)

type Config struct {
	StoreDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	BadgerDir string

	RedisURL string

	ServerPort string

	JWTSecret         string
	AccessTokenMaxAge int

	StorageDriver string
	UploadDir     string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// PublicBaseURLs are the absolute prefixes clients may put in front of a
	// canonical photo URI. R2PublicURL is appended when set.
	PublicBaseURLs []string

	WorkerCount       int
	ReconcileInterval time.Duration
	RepairTimeout     time.Duration
	FeedFanout        int

	MetricsEnabled bool
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	accessTokenMaxAge, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_MAX_AGE"))
	if err != nil || accessTokenMaxAge <= 0 {
		accessTokenMaxAge = 3600
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	feedFanout, err := strconv.Atoi(os.Getenv("FEED_FANOUT"))
	if err != nil || feedFanout <= 0 {
		feedFanout = 8
	}

	reconcileInterval, err := time.ParseDuration(os.Getenv("RECONCILE_INTERVAL"))
	if err != nil || reconcileInterval < 0 {
		reconcileInterval = 10 * time.Minute
	}

	repairTimeout, err := time.ParseDuration(os.Getenv("REPAIR_TIMEOUT"))
	if err != nil || repairTimeout <= 0 {
		repairTimeout = 5 * time.Second
	}

	metricsEnabled := true
	if v, err := strconv.ParseBool(os.Getenv("METRICS_ENABLED")); err == nil {
		metricsEnabled = v
	}

	r2PublicURL := strings.TrimSuffix(os.Getenv("R2_PUBLIC_URL"), "/")
	publicBaseURLs := splitList(os.Getenv("PUBLIC_BASE_URLS"))
	if r2PublicURL != "" {
		publicBaseURLs = append(publicBaseURLs, r2PublicURL)
	}

	return &Config{
		StoreDriver: envOr("STORE_DRIVER", StoreDriverPostgres),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     envOr("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  envOr("DB_SSLMODE", "require"),

		BadgerDir: envOr("BADGER_DIR", "data/badger"),

		RedisURL: os.Getenv("REDIS_URL"),

		ServerPort: envOr("SERVER_PORT", "8080"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTokenMaxAge: accessTokenMaxAge,

		StorageDriver: envOr("STORAGE_DRIVER", StorageDriverDisk),
		UploadDir:     envOr("UPLOAD_DIR", "uploads"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       r2PublicURL,

		PublicBaseURLs: publicBaseURLs,

		WorkerCount:       workerCount,
		ReconcileInterval: reconcileInterval,
		RepairTimeout:     repairTimeout,
		FeedFanout:        feedFanout,

		MetricsEnabled: metricsEnabled,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
