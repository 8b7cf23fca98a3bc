package stampauth

import (
	"context"
	"time"
)

// UserAccount defines a public type used by stampauth APIs.
//
// UserAccount instances are owned by the [UserStore]; the Engine treats them as
// snapshots and persists mutations through compare-and-swap updates on Version.
type UserAccount struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"password_hash"`
	EmailConfirmed   bool      `json:"email_confirmed"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	AuthenticatorKey string    `json:"authenticator_key,omitempty"`
	SecurityStamp    string    `json:"security_stamp"`
	RecoveryCodes    []string  `json:"recovery_codes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	Version          uint64    `json:"version"`
}

// Clone returns a deep copy so store implementations and tests can hand out
// records without aliasing the recovery code slice.
func (u *UserAccount) Clone() *UserAccount {
	if u == nil {
		return nil
	}
	out := *u
	if len(u.RecoveryCodes) > 0 {
		out.RecoveryCodes = append([]string(nil), u.RecoveryCodes...)
	}
	return &out
}

// UserStore defines a public type used by stampauth APIs.
//
// Implementations must honor the sentinel contract: lookups return
// [ErrUserNotFound] when no record matches, Add returns [ErrAccountExists] on a
// duplicate email, and Update is a compare-and-swap on Version that returns
// [ErrConcurrencyConflict] when the stored version has moved.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*UserAccount, error)
	FindByID(ctx context.Context, id string) (*UserAccount, error)
	Add(ctx context.Context, user *UserAccount) (*UserAccount, error)
	Update(ctx context.Context, user *UserAccount) error
	Delete(ctx context.Context, id string) error
}

// MailKind defines a public type used by stampauth APIs.
//
// MailKind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MailKind uint8

const (
	// MailEmailConfirmation is an exported constant or variable used by the authentication engine.
	MailEmailConfirmation MailKind = iota
	// MailTwoFactorCode is an exported constant or variable used by the authentication engine.
	MailTwoFactorCode
)

// Mailer defines a public type used by stampauth APIs.
//
// Send is fire-and-forget from the Engine's perspective: a failed delivery is
// audited but never fails the calling operation and is never retried.
type Mailer interface {
	Send(ctx context.Context, to string, kind MailKind, data map[string]string) error
}

// Clock defines a public type used by stampauth APIs.
//
// Clock instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Clock interface {
	Now() time.Time
}

// IDSource defines a public type used by stampauth APIs.
//
// IDSource instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type IDSource interface {
	NewTokenID() string
	NewSecurityStamp() string
}

// RandomSource defines a public type used by stampauth APIs.
//
// Int must return a uniform value in [0, max). The default implementation reads
// crypto/rand.
type RandomSource interface {
	Int(max int64) (int64, error)
}

// CodeType defines a public type used by stampauth APIs.
//
// CodeType instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeType uint8

const (
	// CodeTypeAuthenticator is an exported constant or variable used by the authentication engine.
	CodeTypeAuthenticator CodeType = iota
	// CodeTypeEmail is an exported constant or variable used by the authentication engine.
	CodeTypeEmail
	// CodeTypeRecovery is an exported constant or variable used by the authentication engine.
	CodeTypeRecovery
)

// TokenPair defines a public type used by stampauth APIs.
//
// TokenPair instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult defines a public type used by stampauth APIs.
//
// When TwoFactorRequired is true, AccessToken carries the restricted-audience
// partial token and RefreshToken is empty; the caller must complete the flow
// through [Engine.AuthenticateTwoFactor].
type LoginResult struct {
	UserID            string
	Pair              TokenPair
	TwoFactorRequired bool
}

// RegisterResult defines a public type used by stampauth APIs.
//
// EmailConfirmationCode is also handed to the [Mailer]; it is surfaced here so
// callers without a mail pipeline can deliver it themselves.
type RegisterResult struct {
	UserID                string
	Pair                  TokenPair
	EmailConfirmationCode string
}

// TwoFactorSetup defines a public type used by stampauth APIs.
//
// TwoFactorSetup instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TwoFactorSetup struct {
	Secret       string
	ProvisionURI string
}

// TwoFactorEnrollment defines a public type used by stampauth APIs.
//
// RecoveryCodes are returned exactly once, at enrollment; the Engine stores
// them for redemption but never exposes them again.
type TwoFactorEnrollment struct {
	RecoveryCodes []string
}
