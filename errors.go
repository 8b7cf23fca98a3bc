package stampauth

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is an exported constant or variable used by the authentication engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidationFailed is an exported constant or variable used by the authentication engine.
	ErrValidationFailed = errors.New("validation failed")
	// ErrEmailAlreadyConfirmed is an exported constant or variable used by the authentication engine.
	ErrEmailAlreadyConfirmed = errors.New("email already confirmed")
	// ErrTwoFactorAlreadyEnabled is an exported constant or variable used by the authentication engine.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrTwoFactorNotEnabled is an exported constant or variable used by the authentication engine.
	ErrTwoFactorNotEnabled = errors.New("two-factor not enabled")
	// ErrTwoFactorNotConfigured is an exported constant or variable used by the authentication engine.
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrCodeInvalid = errors.New("code invalid")
	// ErrUnsupportedCodeType is an exported constant or variable used by the authentication engine.
	ErrUnsupportedCodeType = errors.New("unsupported code type")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMismatch is an exported constant or variable used by the authentication engine.
	ErrTokenMismatch = errors.New("token pair mismatch")
	// ErrConcurrencyConflict is an exported constant or variable used by the authentication engine.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("user store unavailable")
)
