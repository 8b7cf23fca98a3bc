package stampauth

import "context"

// ConfirmEmail validates an email-confirmation one-time code and marks the
// address confirmed. The security stamp rotates on success, so the consumed
// code (and every other outstanding stamp-derived code) stops validating.
//
// ConfirmEmail may return an error when input validation, dependency calls, or security checks fail.
// ConfirmEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ConfirmEmail(ctx context.Context, userID, code string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.EmailConfirmed {
		return ErrEmailAlreadyConfirmed
	}

	ok, err := e.otp.Validate(PurposeEmailConfirmation, user.ID, user.SecurityStamp, code, e.now())
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricEmailConfirmFailure)
		e.emitAudit(ctx, auditEventEmailConfirmFailure, false, user.ID, "", ErrCodeInvalid, nil)
		return ErrCodeInvalid
	}

	user.EmailConfirmed = true
	e.rotateStamp(user)

	if err := e.updateUser(ctx, user); err != nil {
		return err
	}

	e.metricInc(MetricEmailConfirmSuccess)
	e.emitAudit(ctx, auditEventEmailConfirmed, true, user.ID, "", nil, nil)

	return nil
}

// ResendEmailConfirmation generates the current email-confirmation code and
// dispatches it through the [Mailer]. The code is also returned for callers
// that deliver mail themselves.
//
// ResendEmailConfirmation may return an error when input validation, dependency calls, or security checks fail.
// ResendEmailConfirmation does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendEmailConfirmation(ctx context.Context, userID string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if user.EmailConfirmed {
		return "", ErrEmailAlreadyConfirmed
	}

	code, err := e.otp.Generate(PurposeEmailConfirmation, user.ID, user.SecurityStamp, e.now())
	if err != nil {
		return "", err
	}
	e.sendMail(ctx, user, MailEmailConfirmation, map[string]string{"code": code})

	return code, nil
}
