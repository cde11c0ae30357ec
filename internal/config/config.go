// Package config defines the process configuration for tubepost.
//
// Configuration is read once at startup from the environment (optionally
// seeded from a .env file) and is immutable afterwards. Components receive
// only the sub-struct they need.
package config

import (
	"time"

	"tubepost/internal/types"
)

// SecretString is an alias for types.SecretString so secrets stay redacted
// when the config is logged.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	YouTube       YouTubeConfig
	Connect       ConnectConfig
	Identity      IdentityConfig
	Billing       BillingConfig
	Ledger        LedgerConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// OAuthClients is parsed from YouTube.ClientsJSON after envconfig runs.
	OAuthClients []OAuthClient `ignored:"true"`
	// CredentialKey is the decoded YouTube credential sealing key.
	CredentialKey [32]byte `ignored:"true"`

	// Injected via ldflags, not env.
	Build BuildInfo `ignored:"true"`
}

// ServerConfig holds HTTP listener and public URL settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// PublicURL is the externally reachable base of this service; the OAuth
	// redirect URI is derived from it.
	PublicURL      string        `envconfig:"PUBLIC_URL" validate:"required,url"`
	DashboardURL   string        `envconfig:"DASHBOARD_URL" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// RedirectURI returns the OAuth callback URL registered with Google.
func (s ServerConfig) RedirectURI() string {
	return trimSlash(s.PublicURL) + "/oauth-callback"
}

// DatabaseConfig holds PostgreSQL connection and pool tuning parameters.
type DatabaseConfig struct {
	URL             SecretString  `envconfig:"DATABASE_URL" validate:"required"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// RedisConfig configures the connect flow store. An empty URL selects the
// in-process store.
type RedisConfig struct {
	URL SecretString `envconfig:"REDIS_URL"`
}

// YouTubeConfig holds platform client settings.
type YouTubeConfig struct {
	// ClientsJSON is a JSON array (or single object) of OAuth client identities.
	ClientsJSON   SecretString  `envconfig:"YOUTUBE_OAUTH_CLIENTS" validate:"required"`
	APIKey        SecretString  `envconfig:"YOUTUBE_API_KEY"`
	LookupMode    string        `envconfig:"LOOKUP_STRATEGY" default:"scrape" validate:"oneof=api scrape"`
	CacheSize     int           `envconfig:"LOOKUP_CACHE_SIZE" default:"512" validate:"min=0"`
	CacheTTL      time.Duration `envconfig:"LOOKUP_CACHE_TTL" default:"5m"`
	SearchRegion  string        `envconfig:"SEARCH_REGION" default:"BR" validate:"len=2"`
	UserAgent     string        `envconfig:"YOUTUBE_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"`
	CallTimeout   time.Duration `envconfig:"YOUTUBE_TIMEOUT" default:"15s"`
	ScrapeBaseURL string        `envconfig:"YOUTUBE_WEB_URL" default:"https://www.youtube.com" validate:"url"`
}

// ConnectConfig holds the OAuth connect flow secrets.
type ConnectConfig struct {
	SessionSecret SecretString  `envconfig:"SESSION_SECRET" validate:"required,min=32"`
	FlowTTL       time.Duration `envconfig:"CONNECT_SESSION_TTL" default:"10m"`
	// CredentialKeyB64 is a base64 encoded 32 byte key.
	CredentialKeyB64 SecretString `envconfig:"CREDENTIAL_KEY" validate:"required"`
}

// IdentityConfig configures ID token verification.
type IdentityConfig struct {
	ProjectID string `envconfig:"FIREBASE_PROJECT_ID" validate:"required"`
	JWKSURL   string `envconfig:"FIREBASE_JWKS_URL" default:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com" validate:"url"`
}

// BillingConfig holds payment settings. Every secret here is optional at
// startup; the endpoints that need a missing one answer 500.
type BillingConfig struct {
	PaymentWebhookSecret SecretString `envconfig:"PAYMENT_WEBHOOK_SECRET"`
	StripeSecretKey      SecretString `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  SecretString `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripeBaseURL        string       `envconfig:"STRIPE_API_URL" default:"https://api.stripe.com" validate:"url"`
	Currency             string       `envconfig:"CHECKOUT_CURRENCY" default:"brl" validate:"len=3"`
	DefaultPriceMinor    int64        `envconfig:"DEFAULT_PRICE_MINOR" default:"1290" validate:"min=0"`
	ProCredits           int          `envconfig:"PRO_CREDITS" default:"999999" validate:"min=1"`
}

// LedgerConfig controls the calendar-day boundary for daily counters.
type LedgerConfig struct {
	Timezone string `envconfig:"USAGE_TIMEZONE" default:"UTC"`
}

// SecurityConfig holds admin access and CORS settings.
type SecurityConfig struct {
	AdminUID           string   `envconfig:"ADMIN_UID" validate:"required"`
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig selects and configures the metrics backend.
type ObservabilityConfig struct {
	MetricsBackend  string `envconfig:"METRICS_BACKEND" default:"prometheus" validate:"oneof=prometheus cloudwatch none"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"TubePost"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// OAuthClient is one Google OAuth client identity of the connect pool.
type OAuthClient struct {
	ClientID     string       `json:"client_id" validate:"required"`
	ClientSecret SecretString `json:"-" validate:"required"`
	AuthURL      string       `json:"auth_uri,omitempty"`
	TokenURL     string       `json:"token_uri,omitempty"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Linker-injected build metadata, for example:
//
//	go build -ldflags "-X tubepost/internal/config.version=1.4.0 \
//	    -X tubepost/internal/config.commit=$(git rev-parse --short HEAD)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo constructs a BuildInfo from the linker-injected variables.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a value could not be parsed into its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
