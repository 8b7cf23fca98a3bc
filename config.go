package stampauth

import (
	"errors"
	"time"
)

// TokenConfig defines a public type used by stampauth APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// SigningMethod selects the access-token algorithm: "hs256" (default) or "ed25519".
	SigningMethod string
	// SigningKey is the HS256 secret or the Ed25519 private key (raw or PEM).
	SigningKey []byte
	// VerifyKey is the Ed25519 public key; unused for HS256.
	VerifyKey []byte

	Issuer   string
	Audience string
	// TwoFactorAudience restricts partial tokens issued while a second factor
	// is still pending. It must differ from Audience.
	TwoFactorAudience string

	AccessTTL time.Duration
	Leeway    time.Duration

	// RefreshKey is the AES-256 key for refresh-token encryption (32 bytes).
	RefreshKey          []byte
	RefreshValidityDays int
}

// OneTimeCodeConfig defines a public type used by stampauth APIs.
//
// OneTimeCodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OneTimeCodeConfig struct {
	Period    int
	Digits    int
	Skew      int
	Algorithm string
	// Issuer labels otpauth:// provisioning URIs for authenticator apps.
	Issuer string
}

// PasswordConfig defines a public type used by stampauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength        int
	RequireUppercase bool
	RequireDigit     bool
	// SpecialChars is the accepted special-character set; empty disables the
	// special-character requirement.
	SpecialChars string
}

// RecoveryConfig defines a public type used by stampauth APIs.
//
// RecoveryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RecoveryConfig struct {
	Count int
}

// AuditConfig defines a public type used by stampauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by stampauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config defines a public type used by stampauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token       TokenConfig
	OneTimeCode OneTimeCodeConfig
	Password    PasswordConfig
	Recovery    RecoveryConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod:       "hs256",
			Issuer:              "stampauth",
			Audience:            "stampauth",
			TwoFactorAudience:   "stampauth:2fa",
			AccessTTL:           time.Hour,
			RefreshValidityDays: 7,
		},
		OneTimeCode: OneTimeCodeConfig{
			Period:    30,
			Digits:    6,
			Skew:      1,
			Algorithm: "SHA1",
			Issuer:    "stampauth",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,

			MinLength:        8,
			RequireUppercase: true,
			RequireDigit:     true,
			SpecialChars:     "!@#$%^&*()-_=+[]{};:,.<>?",
		},
		Recovery: RecoveryConfig{
			Count: 5,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	switch c.Token.SigningMethod {
	case "hs256", "ed25519":
	default:
		return errors.New("unsupported token signing method")
	}
	if len(c.Token.SigningKey) == 0 {
		return errors.New("token signing key required")
	}
	if c.Token.Issuer == "" || c.Token.Audience == "" {
		return errors.New("token issuer and audience required")
	}
	if c.Token.TwoFactorAudience == "" || c.Token.TwoFactorAudience == c.Token.Audience {
		return errors.New("two-factor audience must be set and distinct from the primary audience")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("access TTL must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("invalid token leeway")
	}
	if len(c.Token.RefreshKey) != 32 {
		return errors.New("refresh key must be 32 bytes")
	}
	if c.Token.RefreshValidityDays <= 0 {
		return errors.New("refresh validity must be at least one day")
	}

	if c.OneTimeCode.Period <= 0 {
		return errors.New("one-time code period must be positive")
	}
	if c.OneTimeCode.Digits < 6 || c.OneTimeCode.Digits > 10 {
		return errors.New("one-time code digits must be between 6 and 10")
	}
	if c.OneTimeCode.Skew < 0 || c.OneTimeCode.Skew > 2 {
		return errors.New("one-time code skew must be between 0 and 2")
	}

	if c.Password.MinLength < 8 {
		return errors.New("password minimum length must be >= 8")
	}

	if c.Recovery.Count < 1 || c.Recovery.Count > 20 {
		return errors.New("recovery code count must be between 1 and 20")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningKey = cloneBytes(cfg.Token.SigningKey)
	out.Token.VerifyKey = cloneBytes(cfg.Token.VerifyKey)
	out.Token.RefreshKey = cloneBytes(cfg.Token.RefreshKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
