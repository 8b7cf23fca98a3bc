package stampauth

import (
	"context"
	"errors"
	"fmt"
)

// Register creates an account from an email and password, issues the
// email-confirmation one-time code, and returns a full token pair. The code is
// handed to the [Mailer] and also returned so callers without a mail pipeline
// can deliver it themselves.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, email, plainPassword string) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if !validEmailAddress(email) {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrValidationFailed, func() map[string]string {
			return map[string]string{"reason": "email_format"}
		})
		return nil, fmt.Errorf("%w: invalid email address", ErrValidationFailed)
	}

	if err := e.policy.Validate(plainPassword); err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrValidationFailed, func() map[string]string {
			return map[string]string{"reason": "password_policy"}
		})
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	hash, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		return nil, err
	}

	user := &UserAccount{
		Email:         email,
		PasswordHash:  hash,
		SecurityStamp: e.ids.NewSecurityStamp(),
		CreatedAt:     e.now(),
	}

	user, err = e.store.Add(ctx, user)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterFailure)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{"reason": "duplicate_email"}
			})
			return nil, fmt.Errorf("%w: email already registered", ErrValidationFailed)
		}
		return nil, err
	}

	code, err := e.otp.Generate(PurposeEmailConfirmation, user.ID, user.SecurityStamp, e.now())
	if err != nil {
		return nil, err
	}
	e.sendMail(ctx, user, MailEmailConfirmation, map[string]string{"code": code})

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, "", nil, nil)

	return &RegisterResult{
		UserID:                user.ID,
		Pair:                  pair,
		EmailConfirmationCode: code,
	}, nil
}
