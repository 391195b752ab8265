// Package config loads and validates process configuration from the environment.
//
// The Config value is constructed once at startup and treated as immutable:
// components receive it (or values derived from it) at construction time and
// never read the environment themselves. Validation evaluates every invariant
// independently and reports all violations together, so a misconfigured
// deploy fails once with the full diagnosis.
package config

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Environment names recognized in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Cipher suite names recognized in TOKEN_CIPHER.
const (
	CipherAESGCM   = "aes-gcm"
	CipherChaCha20 = "chacha20poly1305"
)

// pushPath is appended to BASE_URL to form the default push verification audience.
const pushPath = "/push/gmail"

// defaultFallbackRecipient is the stock test recipient shipped in .env.example.
// It must never receive real traffic from a production deploy.
const defaultFallbackRecipient = "+15005550006"

// Config is the process-wide configuration. Immutable after Load.
type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        int    `env:"PORT" default:"8080"`
	BaseURL     string `env:"BASE_URL"`
	CORSOrigins string `env:"CORS_ORIGINS"`

	DatabaseURL            string `env:"DATABASE_URL"`
	MaintenanceDatabaseURL string `env:"MAINTENANCE_DATABASE_URL"`
	RetentionDays          int    `env:"RETENTION_DAYS" default:"180"`

	TokenEncryptionKey   string `env:"TOKEN_ENCRYPTION_KEY"`
	TokenEncryptionKeyID string `env:"TOKEN_ENCRYPTION_KEY_ID"`
	TokenDecryptionKeys  string `env:"TOKEN_DECRYPTION_KEYS"`
	TokenCipher          string `env:"TOKEN_CIPHER" default:"aes-gcm"`

	ScopeTokenSecret string `env:"SCOPE_TOKEN_SECRET"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	PubSubTopic             string `env:"PUBSUB_TOPIC"`
	PubSubSubscription      string `env:"PUBSUB_SUBSCRIPTION"`
	PubSubOIDCAudience      string `env:"PUBSUB_OIDC_AUDIENCE"`
	PubSubServiceAccount    string `env:"PUBSUB_SERVICE_ACCOUNT"`
	PubSubVerificationToken string `env:"PUBSUB_VERIFICATION_TOKEN"`
	GoogleAppCredentials    string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	ClassifierAPIKey string `env:"CLASSIFIER_API_KEY"`

	TwilioAccountSID          string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken           string `env:"TWILIO_AUTH_TOKEN"`
	TwilioMessagingServiceSID string `env:"TWILIO_MESSAGING_SERVICE_SID"`
	TwilioFromNumber          string `env:"TWILIO_FROM_NUMBER"`
	SMSFallbackRecipient      string `env:"SMS_FALLBACK_RECIPIENT"`
	AllowDefaultFallback      bool   `env:"SMS_ALLOW_DEFAULT_FALLBACK" default:"false"`

	FeatureSMS        bool `env:"FEATURE_ENABLE_SMS" default:"false"`
	FeatureTasks      bool `env:"FEATURE_ENABLE_TASKS" default:"false"`
	FeaturePush       bool `env:"FEATURE_ENABLE_PUSH" default:"false"`
	FeatureClassifier bool `env:"FEATURE_ENABLE_CLASSIFIER" default:"false"`
}

// Load reads the environment (plus an optional .env file) into a validated
// Config. On validation failure the returned error aggregates every
// violation; the process must not start.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the process runs in the production environment.
func (c *Config) IsProduction() bool { return c.AppEnv == EnvProduction }

// Audience returns the push verification audience: the explicit override
// when set, otherwise BASE_URL + the push path. Deterministic for the same
// inputs.
func (c *Config) Audience() string {
	if c.PubSubOIDCAudience != "" {
		return c.PubSubOIDCAudience
	}
	return strings.TrimRight(c.BaseURL, "/") + pushPath
}

// Origins returns the parsed CORS origin list.
func (c *Config) Origins() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ActiveKey decodes the active encryption key. Validate guarantees success
// on a loaded Config; the error path exists for synthetic configs.
func (c *Config) ActiveKey() ([]byte, error) {
	return decodeKey(c.TokenEncryptionKey)
}

// DecryptionKeys parses TOKEN_DECRYPTION_KEYS ("kid=base64key" pairs,
// comma-separated) into a key-id registry of retired keys.
func (c *Config) DecryptionKeys() (map[string][]byte, error) {
	return parseKeyList(c.TokenDecryptionKeys)
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func parseKeyList(s string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	if s == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, val, ok := strings.Cut(pair, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("entry %q: want kid=base64key", pair)
		}
		key, err := decodeKey(val)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", id, err)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("key %q: duplicate id", id)
		}
		out[id] = key
	}
	return out, nil
}
