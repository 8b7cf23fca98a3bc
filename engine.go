package stampauth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/stampauth/stampauth/password"
	"github.com/stampauth/stampauth/token"
)

// Engine defines a public type used by stampauth APIs.
//
// Engine methods are safe for concurrent use after [Builder.Build]. The Engine
// holds no per-user state between calls; everything it knows about a user is
// read from the [UserStore] at the start of an operation and written back with
// a compare-and-swap update.
type Engine struct {
	config Config

	store  UserStore
	mailer Mailer
	clock  Clock
	ids    IDSource
	random RandomSource

	tokens       *token.Manager
	passwordHash *password.Argon2
	policy       password.Policy
	otp          *oneTimeCodeEngine
	vault        *recoveryCodeVault

	audit   *auditDispatcher
	metrics *Metrics
}

// Close releases background resources (the audit dispatcher). It drains
// buffered audit events before returning.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded under
// backpressure since the engine was built.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.tokens == nil || e.passwordHash == nil || e.otp == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	e.metrics.Observe(id, d)
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}

// issuePair mints a full access/refresh pair for the user's current state.
// The pair shares a fresh token id and carries the current security stamp.
func (e *Engine) issuePair(user *UserAccount) (TokenPair, error) {
	pair, err := e.tokens.IssuePair(token.SessionClaims{
		Subject:        user.ID,
		Email:          user.Email,
		EmailConfirmed: user.EmailConfirmed,
		SecurityStamp:  user.SecurityStamp,
	}, e.ids.NewTokenID(), e.now())
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// sendMail dispatches through the Mailer collaborator. Delivery failures are
// audited and counted but never fail the calling operation.
func (e *Engine) sendMail(ctx context.Context, user *UserAccount, kind MailKind, data map[string]string) {
	if e.mailer == nil {
		return
	}

	if err := e.mailer.Send(ctx, user.Email, kind, data); err != nil {
		e.metricInc(MetricMailDispatchFailure)
		e.emitAudit(ctx, auditEventMailDispatchFailed, false, user.ID, "", err, nil)
		return
	}

	e.emitAudit(ctx, auditEventEmailCodeSent, true, user.ID, "", nil, nil)
}

// rotateStamp replaces the user's security stamp in place. Every outstanding
// stamp-derived one-time code and every refresh token issued under the old
// stamp becomes invalid once the record is persisted.
func (e *Engine) rotateStamp(user *UserAccount) {
	user.SecurityStamp = e.ids.NewSecurityStamp()
}

// updateUser persists a mutated record, translating a lost compare-and-swap
// race into [ErrConcurrencyConflict]. The core never retries; callers decide.
func (e *Engine) updateUser(ctx context.Context, user *UserAccount) error {
	err := e.store.Update(ctx, user)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConcurrencyConflict) {
		e.metricInc(MetricConcurrencyConflict)
		return ErrConcurrencyConflict
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmailAddress(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
