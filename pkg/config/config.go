package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
)

// PageSize is the number of products the API returns per page.
const PageSize = 20

// Payment providers understood by the checkout flow.
const (
	ProviderStripe  = "stripe"
	ProviderSandbox = "sandbox"
)

// Config holds application configuration from environment variables
type Config struct {
	// Storefront client
	APIBaseURL      string
	CredentialsFile string
	SearchDebounce  time.Duration
	RequestTimeout  time.Duration
	DownloadDir     string
	LogConfig       string

	// Payments
	PaymentProvider      string
	StripePublishableKey string
	Currency             string

	// Mock API
	MockAPIPort string

	// OpenTelemetry
	OTELMetricsEnabled        bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPHeaders   string // For SigNoz Cloud: signoz-ingestion-key=<key>
	OTELExporterOTLPInsecure  bool   // true for http://, false for https://
	OTELServiceName           string
	OTELServiceVersion        string
	OTELDeploymentEnvironment string
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	return &Config{
		// Storefront client
		APIBaseURL:      getEnv("STOREFRONT_API_URL", "http://localhost:8000/api"),
		CredentialsFile: getEnv("STOREFRONT_CREDENTIALS", defaultCredentialsFile()),
		SearchDebounce:  getEnvDuration("STOREFRONT_SEARCH_DEBOUNCE", 500*time.Millisecond),
		RequestTimeout:  getEnvDuration("STOREFRONT_REQUEST_TIMEOUT", 0),
		DownloadDir:     getEnv("STOREFRONT_DOWNLOAD_DIR", "."),
		LogConfig:       getEnv("STOREFRONT_LOG", "<root>=WARNING"),

		// Payments
		PaymentProvider:      getEnv("STOREFRONT_PAYMENT_PROVIDER", ProviderSandbox),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		Currency:             getEnv("STOREFRONT_CURRENCY", "usd"),

		// Mock API
		MockAPIPort: getEnv("MOCKAPI_PORT", "8000"),

		// OpenTelemetry
		OTELMetricsEnabled:        getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPHeaders:   getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "storefront"),
		OTELServiceVersion:        getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment: getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
	}
}

// Validate reports settings the client cannot run with.
func (c *Config) Validate() error {
	switch c.PaymentProvider {
	case ProviderSandbox:
	case ProviderStripe:
		if c.StripePublishableKey == "" {
			return errors.NotValidf("stripe payment provider without STRIPE_PUBLISHABLE_KEY")
		}
	default:
		return errors.NotValidf("payment provider %q", c.PaymentProvider)
	}
	if c.APIBaseURL == "" {
		return errors.NotValidf("empty API base URL")
	}
	if c.SearchDebounce < 0 || c.RequestTimeout < 0 {
		return errors.NotValidf("negative duration")
	}
	return nil
}

// GetMockAPIPortInt returns the mock API port as an integer
func (c *Config) GetMockAPIPortInt() int {
	port, err := strconv.Atoi(c.MockAPIPort)
	if err != nil {
		return 8000
	}
	return port
}

func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "storefront-credentials.yaml"
	}
	return filepath.Join(dir, "storefront", "credentials.yaml")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}
