package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	MercadoPago MercadoPagoConfig
	Email       EmailConfig
	Orders      OrdersConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// MercadoPagoConfig holds the gateway credentials. They are injected into
// the client constructor at startup; nothing reads them from a global.
type MercadoPagoConfig struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
	// WebhookURL is sent as notification_url on checkout preferences,
	// e.g. https://api.gepesports.com/payments/webhook
	WebhookURL string
	// FrontBaseURL builds the checkout back_urls (/checkout/success etc.)
	FrontBaseURL        string
	StatementDescriptor string
}

// EmailConfig for the Resend transactional email API. An empty APIKey
// disables outbound email; all sends are best-effort.
type EmailConfig struct {
	APIKey  string
	BaseURL string
	From    string
	Timeout time.Duration
}

type OrdersConfig struct {
	// NumberPrefix is the public order number prefix (GEPE-XXXXXX).
	NumberPrefix string
	// EnforceProductionFlow rejects backward production moves
	// (e.g. PRINTING back to CUTTING) when enabled. Off by default:
	// the workshop occasionally re-runs a stage.
	EnforceProductionFlow bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "8080"),
			Env:          envOr("ENV", "development"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envOr("DATABASE_DSN", "gepe:gepe@tcp(localhost:3306)/gepe?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: envOr("JWT_SECRET", "change-me-in-production"),
			AccessExpiry: 12 * time.Hour,
			Issuer:       "gepe",
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:         os.Getenv("MP_ACCESS_TOKEN"),
			BaseURL:             envOr("MP_BASE_URL", "https://api.mercadopago.com"),
			Timeout:             10 * time.Second,
			WebhookURL:          os.Getenv("MP_WEBHOOK_URL"),
			FrontBaseURL:        envOr("FRONT_BASE_URL", "http://localhost:3000"),
			StatementDescriptor: "GEPE SPORTS",
		},
		Email: EmailConfig{
			APIKey:  os.Getenv("RESEND_API_KEY"),
			BaseURL: envOr("RESEND_BASE_URL", "https://api.resend.com"),
			From:    envOr("EMAIL_FROM", "GEPE <pedidos@gepesports.com>"),
			Timeout: 10 * time.Second,
		},
		Orders: OrdersConfig{
			NumberPrefix:          envOr("ORDER_NUMBER_PREFIX", "GEPE"),
			EnforceProductionFlow: envBool("ENFORCE_PRODUCTION_FLOW", false),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
