package stampauth

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	SigningMethod       string        `env:"STAMPAUTH_TOKEN_SIGNING_METHOD" envDefault:"hs256"`
	SigningKey          string        `env:"STAMPAUTH_TOKEN_SIGNING_KEY"`
	VerifyKey           string        `env:"STAMPAUTH_TOKEN_VERIFY_KEY"`
	Issuer              string        `env:"STAMPAUTH_TOKEN_ISSUER" envDefault:"stampauth"`
	Audience            string        `env:"STAMPAUTH_TOKEN_AUDIENCE" envDefault:"stampauth"`
	TwoFactorAudience   string        `env:"STAMPAUTH_TOKEN_2FA_AUDIENCE" envDefault:"stampauth:2fa"`
	AccessTTL           time.Duration `env:"STAMPAUTH_TOKEN_ACCESS_TTL" envDefault:"1h"`
	RefreshKey          string        `env:"STAMPAUTH_TOKEN_REFRESH_KEY"`
	RefreshValidityDays int           `env:"STAMPAUTH_TOKEN_REFRESH_DAYS" envDefault:"7"`

	OneTimeCodeIssuer string `env:"STAMPAUTH_OTP_ISSUER" envDefault:"stampauth"`

	AuditEnabled   bool `env:"STAMPAUTH_AUDIT_ENABLED" envDefault:"true"`
	MetricsEnabled bool `env:"STAMPAUTH_METRICS_ENABLED" envDefault:"true"`
}

// ConfigFromEnv builds a Config from STAMPAUTH_* environment variables on top
// of the package defaults. Key material is expected base64-encoded.
//
// ConfigFromEnv may return an error when input validation, dependency calls, or security checks fail.
// ConfigFromEnv does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ConfigFromEnv() (Config, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := defaultConfig()
	cfg.Token.SigningMethod = e.SigningMethod
	cfg.Token.Issuer = e.Issuer
	cfg.Token.Audience = e.Audience
	cfg.Token.TwoFactorAudience = e.TwoFactorAudience
	cfg.Token.AccessTTL = e.AccessTTL
	cfg.Token.RefreshValidityDays = e.RefreshValidityDays
	cfg.OneTimeCode.Issuer = e.OneTimeCodeIssuer
	cfg.Audit.Enabled = e.AuditEnabled
	cfg.Metrics.Enabled = e.MetricsEnabled

	var err error
	if cfg.Token.SigningKey, err = decodeEnvKey("STAMPAUTH_TOKEN_SIGNING_KEY", e.SigningKey); err != nil {
		return Config{}, err
	}
	if cfg.Token.VerifyKey, err = decodeEnvKey("STAMPAUTH_TOKEN_VERIFY_KEY", e.VerifyKey); err != nil {
		return Config{}, err
	}
	if cfg.Token.RefreshKey, err = decodeEnvKey("STAMPAUTH_TOKEN_REFRESH_KEY", e.RefreshKey); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func decodeEnvKey(name, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return raw, nil
}
