package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Webhook MAC schemes.
const (
	MACSchemeHMAC   = "hmac-sha256"
	MACSchemeLegacy = "legacy"
)

const devJWTSecret = "portal-dev-secret-change-me"

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults and
// passed explicitly to every constructor that needs them.
type Config struct {
	// Server
	Port               int
	LogLevel           string
	CORSAllowedOrigins []string
	DevMode            bool

	// Persistence
	StoreBackend      string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	StoreTimeout      time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Cache
	CacheTTL time.Duration

	// JWT / Auth
	JWTSecret       string
	JWTTTL          time.Duration
	JWTIssuer       string
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Redis (login limiter). Empty address selects the in-memory limiter.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Payment gateway webhook
	WebhookSecret    string
	WebhookMACScheme string

	// Documents. Empty bucket keeps content inline in the company document.
	UploadMaxBytes int64
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string

	// Observability
	OTLPEndpoint string
}

// LoadDotEnv reads a .env file into the environment. Variables that are
// already set win over the file.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	mongoURI := getEnv("MONGO_URI", getEnv("MONGO_DB_URI", ""))
	backend := BackendMongo
	if mongoURI == "" {
		backend = BackendMemory
	}

	return &Config{
		Port:               getEnvInt("PORT", 5000),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		DevMode:            getEnvBool("DEV_MODE", false),

		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", backend)),
		MongoURI:          mongoURI,
		MongoDatabase:     getEnv("MONGO_DATABASE", "client_portal"),
		MongoTransactions: getEnvBool("MONGO_TRANSACTIONS", false),
		StoreTimeout:      getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTTTL:          getEnvDuration("JWT_TTL", time.Hour),
		JWTIssuer:       getEnv("JWT_ISSUER", "client-portal"),
		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		WebhookSecret:    getEnv("WEBHOOK_SECRET", getEnv("NETS_SECRET_KEY", "")),
		WebhookMACScheme: strings.ToLower(getEnv("WEBHOOK_MAC_SCHEME", MACSchemeHMAC)),

		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Validate rejects configurations the server must not start with. In dev
// mode a missing JWT secret is replaced by a fixed development value.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		if c.DevMode {
			c.JWTSecret = devJWTSecret
		} else {
			errs = append(errs, errors.New("JWT_SECRET is required outside dev mode"))
		}
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.WebhookMACScheme {
	case MACSchemeHMAC, MACSchemeLegacy:
	default:
		errs = append(errs, fmt.Errorf("unknown WEBHOOK_MAC_SCHEME %q", c.WebhookMACScheme))
	}

	if c.LoginRateLimit <= 0 || c.LoginRateWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive"))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
