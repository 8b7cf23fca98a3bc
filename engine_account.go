package stampauth

import (
	"context"
	"fmt"
)

// ChangePassword replaces the account password after verifying the old one.
// Reusing the old password is rejected. The security stamp rotates, which
// invalidates every outstanding refresh token and stamp-derived code.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := e.passwordHash.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if newPassword == oldPassword {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, "", ErrValidationFailed, func() map[string]string {
			return map[string]string{"reason": "password_reuse"}
		})
		return fmt.Errorf("%w: new password must differ from the old one", ErrValidationFailed)
	}

	if err := e.policy.Validate(newPassword); err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, "", ErrValidationFailed, func() map[string]string {
			return map[string]string{"reason": "password_policy"}
		})
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	e.rotateStamp(user)

	if err := e.updateUser(ctx, user); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChanged, true, user.ID, "", nil, nil)

	return nil
}

// DeleteAccount removes the user record. Outstanding tokens fail on their next
// refresh because the subject no longer resolves.
//
// DeleteAccount may return an error when input validation, dependency calls, or security checks fail.
// DeleteAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteAccount(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	if err := e.store.Delete(ctx, userID); err != nil {
		return err
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, userID, "", nil, nil)

	return nil
}
