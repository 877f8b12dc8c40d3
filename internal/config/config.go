package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"ba6-ai-server/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort string
	LogLevel   string
	AppEnv     string

	SupabaseURL        string
	SupabaseKey        string
	SupabaseServiceKey string
	JWTSecret          string

	DatabaseURL string
	RedisURL    string

	InferenceProvider string
	VeniceAPIKey      string
	VeniceBaseURL     string
	TextModel         string
	ImageModel        string
	VertexModel       string
	GCPProjectID      string
	GCPLocation       string
	UpstreamTimeout   time.Duration

	CatalogTTL       time.Duration
	CatalogRulesPath string

	StripeProPriceID    string
	StripeTeamPriceID   string
	StripeWebhookSecret string

	RefundOnUpstreamFailure bool
	AdminAPISecret          string
	AllowedOrigins          []string
}

// NewConfig reads the configuration from the environment
func NewConfig() *AppConfig {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("INFERENCE_PROVIDER", "venice")
	v.SetDefault("VENICE_BASE_URL", "https://api.venice.ai/api/v1")
	v.SetDefault("VENICE_CHAT_MODEL", "venice-uncensored")
	v.SetDefault("VENICE_IMAGE_MODEL", "z-image-turbo")
	v.SetDefault("VERTEX_CHAT_MODEL", "gemini-2.0-flash-001")
	v.SetDefault("GCP_LOCATION", "us-central1")
	v.SetDefault("UPSTREAM_TIMEOUT", 60*time.Second)
	v.SetDefault("CATALOG_TTL", 10*time.Minute)
	v.SetDefault("REFUND_ON_UPSTREAM_FAILURE", false)

	// Cloud Run (and many PaaS) provide the listening port via PORT.
	// Keep SERVER_PORT for local/dev compatibility.
	port := v.GetString("PORT")
	if port == "" {
		port = v.GetString("SERVER_PORT")
	}

	return &AppConfig{
		ServerPort: port,
		LogLevel:   v.GetString("LOG_LEVEL"),
		AppEnv:     strings.ToLower(v.GetString("APP_ENV")),

		SupabaseURL:        v.GetString("SUPABASE_URL"),
		SupabaseKey:        v.GetString("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
		JWTSecret:          v.GetString("SUPABASE_JWT_SECRET"),

		DatabaseURL: v.GetString("DATABASE_URL"),
		RedisURL:    v.GetString("REDIS_URL"),

		InferenceProvider: strings.ToLower(v.GetString("INFERENCE_PROVIDER")),
		VeniceAPIKey:      v.GetString("VENICE_API_KEY"),
		VeniceBaseURL:     v.GetString("VENICE_BASE_URL"),
		TextModel:         v.GetString("VENICE_CHAT_MODEL"),
		ImageModel:        v.GetString("VENICE_IMAGE_MODEL"),
		VertexModel:       v.GetString("VERTEX_CHAT_MODEL"),
		GCPProjectID:      v.GetString("GCP_PROJECT_ID"),
		GCPLocation:       v.GetString("GCP_LOCATION"),
		UpstreamTimeout:   v.GetDuration("UPSTREAM_TIMEOUT"),

		CatalogTTL:       v.GetDuration("CATALOG_TTL"),
		CatalogRulesPath: v.GetString("CATALOG_RULES_PATH"),

		StripeProPriceID:    v.GetString("STRIPE_PRO_PRICE_ID"),
		StripeTeamPriceID:   v.GetString("STRIPE_TEAM_PRICE_ID"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),

		RefundOnUpstreamFailure: v.GetBool("REFUND_ON_UPSTREAM_FAILURE"),
		AdminAPISecret:          v.GetString("ADMIN_API_SECRET"),
		AllowedOrigins:          splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetSupabaseServiceKey returns the Supabase service role key
func (c *AppConfig) GetSupabaseServiceKey() string {
	return c.SupabaseServiceKey
}

// GetJWTSecret returns the Supabase JWT secret
func (c *AppConfig) GetJWTSecret() string {
	return c.JWTSecret
}

var _ domain.Config = (*AppConfig)(nil)

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
