package stampauth

import (
	"context"
	"errors"
)

// SetupTwoFactor begins authenticator enrollment: it generates the account's
// authenticator secret (or returns the existing one when setup was started but
// never confirmed) together with the otpauth:// provisioning URI. Enrollment
// becomes effective only through [Engine.ConfirmTwoFactor].
//
// SetupTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// SetupTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	if user.AuthenticatorKey == "" {
		key, err := e.otp.GenerateAuthenticatorKey()
		if err != nil {
			return nil, err
		}
		user.AuthenticatorKey = key
		if err := e.updateUser(ctx, user); err != nil {
			return nil, err
		}
	}

	e.emitAudit(ctx, auditEventTwoFactorSetup, true, user.ID, "", nil, nil)

	return &TwoFactorSetup{
		Secret:       user.AuthenticatorKey,
		ProvisionURI: e.otp.ProvisionURI(user.AuthenticatorKey, user.Email),
	}, nil
}

// ConfirmTwoFactor validates an authenticator code against the secret issued
// by [Engine.SetupTwoFactor], then enables two-factor, rotates the security
// stamp, and issues the recovery code batch. The plaintext codes are returned
// exactly once.
//
// ConfirmTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// ConfirmTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ConfirmTwoFactor(ctx context.Context, userID, code string) (*TwoFactorEnrollment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}
	if user.AuthenticatorKey == "" {
		return nil, ErrTwoFactorNotConfigured
	}

	ok, err := e.otp.VerifyAuthenticatorCode(user.AuthenticatorKey, code, e.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, "", ErrCodeInvalid, func() map[string]string {
			return map[string]string{"stage": "confirm_setup"}
		})
		return nil, ErrCodeInvalid
	}

	codes, err := e.vault.NewCodes()
	if err != nil {
		return nil, err
	}

	// Enable flag, stamp rotation, and recovery codes land in one write so a
	// reader never observes a half-enrolled account.
	user.TwoFactorEnabled = true
	user.RecoveryCodes = codes
	e.rotateStamp(user)

	if err := e.updateUser(ctx, user); err != nil {
		return nil, err
	}

	e.metricInc(MetricRecoveryCodesIssued)
	e.emitAudit(ctx, auditEventTwoFactorEnabled, true, user.ID, "", nil, nil)
	e.emitAudit(ctx, auditEventRecoveryCodesIssued, true, user.ID, "", nil, nil)

	return &TwoFactorEnrollment{RecoveryCodes: codes}, nil
}

// RegenerateRecoveryCodes replaces the stored recovery code set with a fresh
// batch, gated on a valid authenticator code. Previously issued codes stop
// working immediately.
//
// RegenerateRecoveryCodes may return an error when input validation, dependency calls, or security checks fail.
// RegenerateRecoveryCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RegenerateRecoveryCodes(ctx context.Context, userID, authenticatorCode string) (*TwoFactorEnrollment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}
	if user.AuthenticatorKey == "" {
		return nil, ErrTwoFactorNotConfigured
	}

	ok, err := e.otp.VerifyAuthenticatorCode(user.AuthenticatorKey, authenticatorCode, e.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricRecoveryCodeFailed)
		return nil, ErrCodeInvalid
	}

	codes, err := e.vault.NewCodes()
	if err != nil {
		return nil, err
	}

	user.RecoveryCodes = codes
	if err := e.updateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	e.metricInc(MetricRecoveryCodesIssued)
	e.emitAudit(ctx, auditEventRecoveryCodesIssued, true, user.ID, "", nil, nil)

	return &TwoFactorEnrollment{RecoveryCodes: codes}, nil
}
