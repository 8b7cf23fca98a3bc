package stampauth

import (
	"errors"
	"time"

	"github.com/stampauth/stampauth/password"
	"github.com/stampauth/stampauth/token"
)

// Builder defines a public type used by stampauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	store  UserStore
	mailer Mailer
	clock  Clock
	ids    IDSource
	random RandomSource

	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
//
// WithMailer may return an error when input validation, dependency calls, or security checks fail.
// WithMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithClock describes the withclock operation and its observable behavior.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithIDSource describes the withidsource operation and its observable behavior.
//
// WithIDSource may return an error when input validation, dependency calls, or security checks fail.
// WithIDSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithIDSource(ids IDSource) *Builder {
	b.ids = ids
	return b
}

// WithRandomSource describes the withrandomsource operation and its observable behavior.
//
// WithRandomSource may return an error when input validation, dependency calls, or security checks fail.
// WithRandomSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRandomSource(r RandomSource) *Builder {
	b.random = r
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("user store required")
	}

	engine := &Engine{
		config: cfg,
		store:  b.store,
		mailer: b.mailer,
		clock:  b.clock,
		ids:    b.ids,
		random: b.random,
	}
	if engine.clock == nil {
		engine.clock = systemClock{}
	}
	if engine.ids == nil {
		engine.ids = uuidIDSource{}
	}
	if engine.random == nil {
		engine.random = cryptoRandomSource{}
	}

	tm, err := token.NewManager(token.Config{
		SigningMethod:   token.SigningMethod(cfg.Token.SigningMethod),
		SigningKey:      cloneBytes(cfg.Token.SigningKey),
		VerifyKey:       cloneBytes(cfg.Token.VerifyKey),
		Issuer:          cfg.Token.Issuer,
		Audience:        cfg.Token.Audience,
		PartialAudience: cfg.Token.TwoFactorAudience,
		AccessTTL:       cfg.Token.AccessTTL,
		Leeway:          cfg.Token.Leeway,
		RefreshKey:      cloneBytes(cfg.Token.RefreshKey),
		RefreshTTL:      time.Duration(cfg.Token.RefreshValidityDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph
	engine.policy = password.Policy{
		MinLength:        cfg.Password.MinLength,
		RequireUppercase: cfg.Password.RequireUppercase,
		RequireDigit:     cfg.Password.RequireDigit,
		SpecialChars:     cfg.Password.SpecialChars,
	}

	engine.otp = newOneTimeCodeEngine(cfg.OneTimeCode)
	engine.vault = newRecoveryCodeVault(engine.store, engine.random, cfg.Recovery)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
