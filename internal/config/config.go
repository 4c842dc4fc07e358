package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	SNSRegion      string
	SNSTargetARN   string // push endpoint or topic; empty falls back to log presentation

	KVBackend    string // "sqlite" | "redis"
	KVSQLitePath string
	RedisAddr    string
	RedisDB      int

	ReachabilityURL     string // empty means "always reachable"
	ReachabilityTimeout time.Duration

	PresentTimeout time.Duration

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each synced collection.
type DynamoTables struct {
	Reminders string
	Documents string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Reminders: getEnv("DYNAMO_TABLE_REMINDERS", "reminders"),
			Documents: getEnv("DYNAMO_TABLE_DOCUMENTS", "documents"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "healthmate-documents"),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		SNSTargetARN: getEnv("SNS_TARGET_ARN", ""),

		KVBackend:    getEnv("KV_BACKEND", "sqlite"),
		KVSQLitePath: getEnv("KV_SQLITE_PATH", "./healthmate.db"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getEnvInt("REDIS_DB", 0),

		ReachabilityURL:     getEnv("REACHABILITY_URL", ""),
		ReachabilityTimeout: getEnvDuration("REACHABILITY_TIMEOUT", 3*time.Second),

		PresentTimeout: getEnvDuration("PRESENT_TIMEOUT", 10*time.Second),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24*7)) * time.Hour,

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("3s", "500ms").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
