package stampauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterFailure       = "register_failure"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventTwoFactorRequired     = "two_factor_required"
	auditEventTwoFactorSuccess      = "two_factor_success"
	auditEventTwoFactorFailure      = "two_factor_failure"
	auditEventTwoFactorSetup        = "two_factor_setup"
	auditEventTwoFactorEnabled      = "two_factor_enabled"
	auditEventRecoveryCodesIssued   = "recovery_codes_issued"
	auditEventRecoveryCodeUsed      = "recovery_code_used"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshFailure        = "refresh_failure"
	auditEventEmailConfirmed        = "email_confirmed"
	auditEventEmailConfirmFailure   = "email_confirm_failure"
	auditEventEmailCodeSent         = "email_code_sent"
	auditEventMailDispatchFailed    = "mail_dispatch_failed"
	auditEventPasswordChanged       = "password_changed"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventAccountDeleted        = "account_deleted"
)

// AuditErrorCode defines a public type used by stampauth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrValidation          AuditErrorCode = "validation_failed"
	auditErrDuplicate           AuditErrorCode = "duplicate"
	auditErrEmailConfirmed      AuditErrorCode = "email_already_confirmed"
	auditErrTwoFactorState      AuditErrorCode = "two_factor_state"
	auditErrCodeInvalid         AuditErrorCode = "code_invalid"
	auditErrUnsupportedCodeType AuditErrorCode = "unsupported_code_type"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrExpiredToken        AuditErrorCode = "expired_token"
	auditErrTokenMismatch       AuditErrorCode = "token_mismatch"
	auditErrConflict            AuditErrorCode = "concurrency_conflict"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrValidationFailed):
		return auditErrValidation
	case errors.Is(err, ErrEmailAlreadyConfirmed):
		return auditErrEmailConfirmed
	case errors.Is(err, ErrTwoFactorAlreadyEnabled),
		errors.Is(err, ErrTwoFactorNotEnabled),
		errors.Is(err, ErrTwoFactorNotConfigured):
		return auditErrTwoFactorState
	case errors.Is(err, ErrCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrUnsupportedCodeType):
		return auditErrUnsupportedCodeType
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrTokenMismatch):
		return auditErrTokenMismatch
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrConcurrencyConflict):
		return auditErrConflict
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
