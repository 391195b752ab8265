package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"go.uber.org/multierr"
)

// e164Re matches E.164 numbers: leading +, 2..15 digits, no leading zero.
var e164Re = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)

// invariant is one named validation rule. Rules are independent: every rule
// runs even when earlier ones fail, so the operator sees the full list.
type invariant struct {
	name  string
	check func(c *Config) error
}

var invariants = []invariant{
	{"app-env", checkAppEnv},
	{"port-range", checkPort},
	{"base-url", checkBaseURL},
	{"database-url", checkDatabaseURL},
	{"maintenance-database-url", checkMaintenanceDatabaseURL},
	{"retention-days", checkRetentionDays},
	{"encryption-key", checkEncryptionKey},
	{"decryption-keys", checkDecryptionKeys},
	{"token-cipher", checkTokenCipher},
	{"scope-token-secret", checkScopeTokenSecret},
	{"classifier-credentials", checkClassifierCredentials},
	{"sms-credentials", checkSMSCredentials},
	{"sms-sender", checkSMSSender},
	{"sms-fallback", checkSMSFallback},
	{"oauth-client", checkOAuthClient},
	{"push-credentials", checkPushCredentials},
	{"push-dev-credentials", checkPushDevCredentials},
}

// Validate runs every invariant and aggregates all violations into a single
// error, each tagged with its invariant name. Returns nil when clean.
func (c *Config) Validate() error {
	var errs error
	for _, inv := range invariants {
		if err := inv.check(c); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", inv.name, err))
		}
	}
	return errs
}

func checkAppEnv(c *Config) error {
	switch c.AppEnv {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return nil
	}
	return fmt.Errorf("APP_ENV %q not one of %s/%s/%s", c.AppEnv, EnvDevelopment, EnvStaging, EnvProduction)
}

func checkPort(c *Config) error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT %d outside [1,65535]", c.Port)
	}
	return nil
}

func checkBaseURL(c *Config) error {
	if c.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	return checkHTTPURL("BASE_URL", c.BaseURL)
}

func checkDatabaseURL(c *Config) error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// The maintenance DSN carries the role that may cross tenant scope.
// Production must not fall back to the per-tenant application role.
func checkMaintenanceDatabaseURL(c *Config) error {
	if !c.IsProduction() {
		return nil
	}
	if c.MaintenanceDatabaseURL == "" {
		return errors.New("MAINTENANCE_DATABASE_URL is required in production")
	}
	if c.MaintenanceDatabaseURL == c.DatabaseURL {
		return errors.New("MAINTENANCE_DATABASE_URL must use a role distinct from DATABASE_URL")
	}
	return nil
}

func checkRetentionDays(c *Config) error {
	if c.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS %d must be >= 1", c.RetentionDays)
	}
	return nil
}

func checkEncryptionKey(c *Config) error {
	if c.TokenEncryptionKey == "" {
		return errors.New("TOKEN_ENCRYPTION_KEY is required")
	}
	if _, err := decodeKey(c.TokenEncryptionKey); err != nil {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY %w", err)
	}
	if c.TokenEncryptionKeyID == "" {
		return errors.New("TOKEN_ENCRYPTION_KEY_ID is required")
	}
	return nil
}

func checkDecryptionKeys(c *Config) error {
	if _, err := parseKeyList(c.TokenDecryptionKeys); err != nil {
		return fmt.Errorf("TOKEN_DECRYPTION_KEYS %w", err)
	}
	return nil
}

func checkTokenCipher(c *Config) error {
	switch c.TokenCipher {
	case CipherAESGCM, CipherChaCha20:
		return nil
	}
	return fmt.Errorf("TOKEN_CIPHER %q not one of %s/%s", c.TokenCipher, CipherAESGCM, CipherChaCha20)
}

func checkScopeTokenSecret(c *Config) error {
	if c.ScopeTokenSecret == "" {
		return errors.New("SCOPE_TOKEN_SECRET is required")
	}
	if len(c.ScopeTokenSecret) < 32 {
		return fmt.Errorf("SCOPE_TOKEN_SECRET must be at least 32 characters, got %d", len(c.ScopeTokenSecret))
	}
	return nil
}

func checkClassifierCredentials(c *Config) error {
	if c.FeatureClassifier && c.ClassifierAPIKey == "" {
		return errors.New("CLASSIFIER_API_KEY is required when FEATURE_ENABLE_CLASSIFIER is set")
	}
	return nil
}

func checkSMSCredentials(c *Config) error {
	if !c.FeatureSMS {
		return nil
	}
	var errs error
	if c.TwilioAccountSID == "" {
		errs = multierr.Append(errs, errors.New("TWILIO_ACCOUNT_SID is required when FEATURE_ENABLE_SMS is set"))
	}
	if c.TwilioAuthToken == "" {
		errs = multierr.Append(errs, errors.New("TWILIO_AUTH_TOKEN is required when FEATURE_ENABLE_SMS is set"))
	}
	return errs
}

// Exactly one sending identity: a messaging service or a bare from-number.
func checkSMSSender(c *Config) error {
	if !c.FeatureSMS {
		return nil
	}
	hasService := c.TwilioMessagingServiceSID != ""
	hasFrom := c.TwilioFromNumber != ""
	switch {
	case hasService && hasFrom:
		return errors.New("set TWILIO_MESSAGING_SERVICE_SID or TWILIO_FROM_NUMBER, not both")
	case !hasService && !hasFrom:
		return errors.New("one of TWILIO_MESSAGING_SERVICE_SID or TWILIO_FROM_NUMBER is required")
	case hasFrom && !e164Re.MatchString(c.TwilioFromNumber):
		return fmt.Errorf("TWILIO_FROM_NUMBER %q is not valid E.164", c.TwilioFromNumber)
	}
	return nil
}

func checkSMSFallback(c *Config) error {
	if !c.FeatureSMS || c.SMSFallbackRecipient == "" {
		return nil
	}
	if c.IsProduction() && c.SMSFallbackRecipient == defaultFallbackRecipient && !c.AllowDefaultFallback {
		return errors.New("SMS_FALLBACK_RECIPIENT is the stock default; set SMS_ALLOW_DEFAULT_FALLBACK to override in production")
	}
	if !e164Re.MatchString(c.SMSFallbackRecipient) {
		return fmt.Errorf("SMS_FALLBACK_RECIPIENT %q is not valid E.164", c.SMSFallbackRecipient)
	}
	return nil
}

func checkOAuthClient(c *Config) error {
	if !c.FeaturePush && !c.FeatureTasks {
		return nil
	}
	var errs error
	if c.GoogleClientID == "" {
		errs = multierr.Append(errs, errors.New("GOOGLE_CLIENT_ID is required when push or tasks are enabled"))
	}
	if c.GoogleClientSecret == "" {
		errs = multierr.Append(errs, errors.New("GOOGLE_CLIENT_SECRET is required when push or tasks are enabled"))
	}
	if c.GoogleRedirectURL == "" {
		errs = multierr.Append(errs, errors.New("GOOGLE_REDIRECT_URL is required when push or tasks are enabled"))
	} else if err := checkHTTPURL("GOOGLE_REDIRECT_URL", c.GoogleRedirectURL); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func checkPushCredentials(c *Config) error {
	if !c.FeaturePush {
		return nil
	}
	// fixed order keeps validation output identical for identical input
	required := []struct {
		name string
		val  string
	}{
		{"PUBSUB_TOPIC", c.PubSubTopic},
		{"PUBSUB_SUBSCRIPTION", c.PubSubSubscription},
		{"PUBSUB_SERVICE_ACCOUNT", c.PubSubServiceAccount},
		{"PUBSUB_VERIFICATION_TOKEN", c.PubSubVerificationToken},
	}
	var errs error
	for _, r := range required {
		if r.val == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required when FEATURE_ENABLE_PUSH is set", r.name))
		}
	}
	return errs
}

// Development has no metadata server, so implicit credential discovery
// cannot work; require the explicit path.
func checkPushDevCredentials(c *Config) error {
	if c.FeaturePush && c.AppEnv == EnvDevelopment && c.GoogleAppCredentials == "" {
		return errors.New("GOOGLE_APPLICATION_CREDENTIALS is required when FEATURE_ENABLE_PUSH is set in development")
	}
	return nil
}

func checkHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute http(s) URL", name, raw)
	}
	return nil
}
