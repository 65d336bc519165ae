package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
)

const (
	ReminderStorePostgres = "postgres"
	ReminderStoreMongo    = "mongo"

	// A claim younger than this may still belong to a check that is mid-flight.
	minClaimTimeout = 2 * time.Minute

	shopifySecretName = "cart-recovery/SHOPIFY"
	twilioSecretName  = "cart-recovery/TWILIO"
)

// Config holds all configuration for the cart recovery service.
type Config struct {
	Port   string
	AppEnv string

	ShopifyStore      string
	ShopifyToken      string
	ShopifySecret     string
	ShopifyAPIVersion string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	DatabaseURL      string
	ReminderLogStore string
	MongoURI         string
	MongoDatabase    string

	RecoveryDelay  time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
	ClaimTimeout   time.Duration

	// Optional AWS wiring
	CheckQueueURL  string
	EventsTopicARN string
	UseSecrets     bool
}

// SecretSource resolves a flat JSON secret by name.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// Load reads configuration from an optional .env file and the environment. When
// AWS_USE_SECRETS=true, Shopify and Twilio credentials are overridden from Secrets Manager.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config for secrets: %w", err)
		}
		if err := cfg.applySecrets(context.Background(), awspkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		AppEnv:            getEnv("APP_ENV", "development"),
		ShopifyStore:      os.Getenv("SHOPIFY_STORE"),
		ShopifyToken:      os.Getenv("SHOPIFY_TOKEN"),
		ShopifySecret:     os.Getenv("SHOPIFY_SECRET"),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2025-01"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ReminderLogStore:  strings.ToLower(getEnv("REMINDER_LOG_STORE", ReminderStorePostgres)),
		MongoURI:          os.Getenv("MONGODB_URI"),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "cart_recovery"),
		CheckQueueURL:     os.Getenv("RECOVERY_CHECK_QUEUE_URL"),
		EventsTopicARN:    os.Getenv("RECOVERY_SNS_TOPIC_ARN"),
		UseSecrets:        os.Getenv("AWS_USE_SECRETS") == "true",
	}

	var err error
	if cfg.RecoveryDelay, err = getDuration("RECOVERY_DELAY", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ClaimTimeout, err = getDuration("CLAIM_TIMEOUT", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepBatchSize, err = getInt("SWEEP_BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applySecrets(ctx context.Context, source SecretSource) error {
	shop, err := source.GetSecretMap(ctx, shopifySecretName)
	if err != nil {
		return fmt.Errorf("failed to load shopify secrets: %w", err)
	}
	override(&c.ShopifyToken, shop, "SHOPIFY_TOKEN")
	override(&c.ShopifySecret, shop, "SHOPIFY_SECRET")
	override(&c.ShopifyStore, shop, "SHOPIFY_STORE")

	twilio, err := source.GetSecretMap(ctx, twilioSecretName)
	if err != nil {
		return fmt.Errorf("failed to load twilio secrets: %w", err)
	}
	override(&c.TwilioAccountSID, twilio, "TWILIO_ACCOUNT_SID")
	override(&c.TwilioAuthToken, twilio, "TWILIO_AUTH_TOKEN")
	override(&c.TwilioFromNumber, twilio, "TWILIO_FROM_NUMBER")
	return nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"SHOPIFY_STORE", c.ShopifyStore},
		{"SHOPIFY_TOKEN", c.ShopifyToken},
		{"SHOPIFY_SECRET", c.ShopifySecret},
		{"TWILIO_ACCOUNT_SID", c.TwilioAccountSID},
		{"TWILIO_AUTH_TOKEN", c.TwilioAuthToken},
		{"TWILIO_FROM_NUMBER", c.TwilioFromNumber},
		{"DATABASE_URL", c.DatabaseURL},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.ReminderLogStore {
	case ReminderStorePostgres:
	case ReminderStoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when REMINDER_LOG_STORE=mongo")
		}
	default:
		return fmt.Errorf("unknown REMINDER_LOG_STORE %q", c.ReminderLogStore)
	}

	if c.RecoveryDelay <= 0 || c.SweepInterval <= 0 || c.ClaimTimeout <= 0 {
		return fmt.Errorf("RECOVERY_DELAY, SWEEP_INTERVAL and CLAIM_TIMEOUT must be positive")
	}
	if c.ClaimTimeout < minClaimTimeout {
		return fmt.Errorf("CLAIM_TIMEOUT must be at least %s, got %s", minClaimTimeout, c.ClaimTimeout)
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be positive")
	}
	return nil
}

func override(dst *string, values map[string]string, key string) {
	if v, ok := values[key]; ok && v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
