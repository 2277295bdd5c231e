package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DBUrl         string
	JWTSecret     string
	InternalToken string // shared secret for storefront -> shipping calls
	WebhookToken  string // shared secret carriers send on callbacks
	AllowedOrigin string
	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// R2 Storage (label archive; disabled when the bucket is empty)
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string
	R2UploadTimeout   time.Duration
	// Kafka (disabled when no brokers are set)
	KafkaBrokers       string
	KafkaOrderTopic    string
	KafkaShipmentTopic string
	KafkaGroupID       string
	// Carrier HTTP
	CarrierTimeout      time.Duration
	CarrierMaxRetries   int
	CarrierRetryBackoff time.Duration
	CarrierRatePerSec   float64
	CarrierBurst        int
	CredentialSkew      time.Duration
	// Parcel (B2C)
	ParcelBaseURL    string
	ParcelAPIKey     string
	ParcelCourierID  int
	ParcelMode       string
	ParcelPickupTime string
	// Freight (B2B/LTL)
	FreightBaseURL      string
	FreightUsername     string
	FreightPassword     string
	FreightCourierID    int
	FreightCutoffHour   int
	FreightTimezone     string
	FreightPickupSlot   string
	FreightTokenRefresh time.Duration
	// Aggregator
	AggregatorBaseURL      string
	AggregatorEmail        string
	AggregatorPassword     string
	AggregatorCourierIDs   string // comma separated; empty uses the built-in set
	AggregatorLogoBaseURL  string
	AggregatorTokenRefresh time.Duration
	// Rates
	MarkupParcel     float64
	MarkupAggregator float64
	MarkupFreight    float64
	MarkupFreightB2B float64
	RateCacheTTL     time.Duration
	AllowZeroCharges bool
	// Public tracking
	TrackCacheTTL   time.Duration
	TrackRatePerSec float64
	TrackRateBurst  int
	// Workers
	SweepInterval       time.Duration
	SweepConcurrency    int
	SweepBatchSize      int
	BookingClaimTTL     time.Duration
	WalletAllowNegative bool
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: Try loading .env (standard local dev)
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DBUrl:         getEnv("DB_DSN", ""),
		JWTSecret:     getEnv("JWT_SECRET", "default_secret_CHANGE_ME"),
		InternalToken: getEnv("INTERNAL_TOKEN", ""),
		WebhookToken:  getEnv("WEBHOOK_TOKEN", ""),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2UploadTimeout:   getDurationEnv("R2_UPLOAD_TIMEOUT", 30*time.Second),

		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
		KafkaOrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "orders.status-changed"),
		KafkaShipmentTopic: getEnv("KAFKA_SHIPMENT_TOPIC", "shipments.status-changed"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "shipwise-backend"),

		// Carrier calls: 20s timeout, 2 retries on transport failures only
		CarrierTimeout:      getDurationEnv("CARRIER_TIMEOUT", 20*time.Second),
		CarrierMaxRetries:   getIntEnv("CARRIER_MAX_RETRIES", 2),
		CarrierRetryBackoff: getDurationEnv("CARRIER_RETRY_BACKOFF", 500*time.Millisecond),
		CarrierRatePerSec:   getFloatEnv("CARRIER_RATE_PER_SEC", 10),
		CarrierBurst:        getIntEnv("CARRIER_BURST", 20),
		CredentialSkew:      getDurationEnv("CARRIER_CREDENTIAL_SKEW", 5*time.Minute),

		ParcelBaseURL:    getEnv("PARCEL_BASE_URL", ""),
		ParcelAPIKey:     getEnv("PARCEL_API_KEY", ""),
		ParcelCourierID:  getIntEnv("PARCEL_COURIER_ID", 1001),
		ParcelMode:       getEnv("PARCEL_SHIPPING_MODE", "S"), // "S" surface, "E" express
		ParcelPickupTime: getEnv("PARCEL_PICKUP_TIME", "14:00:00"),

		FreightBaseURL:      getEnv("FREIGHT_BASE_URL", ""),
		FreightUsername:     getEnv("FREIGHT_USERNAME", ""),
		FreightPassword:     getEnv("FREIGHT_PASSWORD", ""),
		FreightCourierID:    getIntEnv("FREIGHT_COURIER_ID", 1002),
		FreightCutoffHour:   getIntEnv("FREIGHT_PICKUP_CUTOFF_HOUR", 14),
		FreightTimezone:     getEnv("FREIGHT_TIMEZONE", "Asia/Kolkata"),
		FreightPickupSlot:   getEnv("FREIGHT_PICKUP_SLOT", "10:00:00"),
		FreightTokenRefresh: getDurationEnv("FREIGHT_TOKEN_REFRESH", 24*time.Hour),

		AggregatorBaseURL:      getEnv("AGGREGATOR_BASE_URL", ""),
		AggregatorEmail:        getEnv("AGGREGATOR_EMAIL", ""),
		AggregatorPassword:     getEnv("AGGREGATOR_PASSWORD", ""),
		AggregatorCourierIDs:   getEnv("AGGREGATOR_COURIER_IDS", ""),
		AggregatorLogoBaseURL:  getEnv("AGGREGATOR_LOGO_BASE_URL", ""),
		AggregatorTokenRefresh: getDurationEnv("AGGREGATOR_TOKEN_REFRESH", 24*time.Hour),

		MarkupParcel:     getFloatEnv("MARKUP_PARCEL", 1.05),
		MarkupAggregator: getFloatEnv("MARKUP_AGGREGATOR", 1.10),
		MarkupFreight:    getFloatEnv("MARKUP_FREIGHT", 1.13),
		MarkupFreightB2B: getFloatEnv("MARKUP_FREIGHT_B2B", 1.13),
		RateCacheTTL:     getDurationEnv("RATE_CACHE_TTL", 5*time.Minute),
		AllowZeroCharges: getBoolEnv("ALLOW_ZERO_CHARGES", false),

		TrackCacheTTL:   getDurationEnv("TRACK_CACHE_TTL", 5*time.Minute),
		TrackRatePerSec: getFloatEnv("TRACK_RATE_PER_SEC", 1),
		TrackRateBurst:  getIntEnv("TRACK_RATE_BURST", 5),

		SweepInterval:       getDurationEnv("SWEEP_INTERVAL", 30*time.Minute),
		SweepConcurrency:    getIntEnv("SWEEP_CONCURRENCY", 16),
		SweepBatchSize:      getIntEnv("SWEEP_BATCH_SIZE", 500),
		BookingClaimTTL:     getDurationEnv("BOOKING_CLAIM_TTL", 2*time.Minute),
		WalletAllowNegative: getBoolEnv("WALLET_ALLOW_NEGATIVE", false),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.DBUrl == "" {
		log.Fatal("CRITICAL: DB_DSN environment variable is required")
	}
	if c.JWTSecret == "default_secret_CHANGE_ME" {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	if c.InternalToken == "" {
		log.Println("WARNING: INTERNAL_TOKEN is empty, internal endpoints are disabled")
	}
	if c.ParcelBaseURL == "" && c.FreightBaseURL == "" && c.AggregatorBaseURL == "" {
		log.Println("WARNING: no carrier base URL configured, every carrier call will fail")
	}
}

// KafkaEnabled reports whether event consumption and publishing are on.
func (c *Config) KafkaEnabled() bool { return c.KafkaBrokers != "" }

// ArchiveEnabled reports whether label PDFs are copied to R2.
func (c *Config) ArchiveEnabled() bool { return c.R2BucketName != "" && c.R2AccountID != "" }

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}
