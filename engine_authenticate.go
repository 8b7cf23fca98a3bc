package stampauth

import (
	"context"
	"errors"
)

// Authenticate verifies an email/password pair. When the account has
// two-factor enabled the result carries a restricted-audience partial token
// and TwoFactorRequired=true, and a fresh two-factor code is dispatched
// through the [Mailer]; otherwise a full token pair is issued.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	user, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	ok, err := e.passwordHash.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	e.maybeUpgradeHash(ctx, user, plainPassword)

	if user.TwoFactorEnabled {
		partial, err := e.tokens.IssuePartial(user.ID, e.ids.NewTokenID(), e.now())
		if err != nil {
			return nil, err
		}

		code, err := e.otp.Generate(PurposeTwoFactor, user.ID, user.SecurityStamp, e.now())
		if err != nil {
			return nil, err
		}
		e.sendMail(ctx, user, MailTwoFactorCode, map[string]string{"code": code})

		e.metricInc(MetricTwoFactorRequired)
		e.emitAudit(ctx, auditEventTwoFactorRequired, true, user.ID, "", nil, nil)

		return &LoginResult{
			UserID:            user.ID,
			Pair:              TokenPair{AccessToken: partial},
			TwoFactorRequired: true,
		}, nil
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, "", nil, nil)

	return &LoginResult{UserID: user.ID, Pair: pair}, nil
}

// AuthenticateTwoFactor completes a pending login with a second factor. The
// code is validated according to codeType: an authenticator-app code against
// the enrolled key, an email code against the stamp-derived TwoFactor purpose,
// or a single-use recovery code against the stored set.
//
// AuthenticateTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// AuthenticateTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuthenticateTwoFactor(ctx context.Context, userID, code string, codeType CodeType) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricTwoFactorFailure)
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID, "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.TwoFactorEnabled {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, "", ErrTwoFactorNotEnabled, nil)
		return nil, ErrTwoFactorNotEnabled
	}

	var ok bool
	switch codeType {
	case CodeTypeAuthenticator:
		if user.AuthenticatorKey == "" {
			e.metricInc(MetricTwoFactorFailure)
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, "", ErrTwoFactorNotConfigured, nil)
			return nil, ErrTwoFactorNotConfigured
		}
		ok, err = e.otp.VerifyAuthenticatorCode(user.AuthenticatorKey, code, e.now())
	case CodeTypeEmail:
		ok, err = e.otp.Validate(PurposeTwoFactor, user.ID, user.SecurityStamp, code, e.now())
	case CodeTypeRecovery:
		ok, err = e.vault.Redeem(ctx, user.ID, code)
		if ok {
			e.metricInc(MetricRecoveryCodeUsed)
			e.emitAudit(ctx, auditEventRecoveryCodeUsed, true, user.ID, "", nil, nil)
		} else if err == nil {
			e.metricInc(MetricRecoveryCodeFailed)
		}
	default:
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, "", ErrUnsupportedCodeType, nil)
		return nil, ErrUnsupportedCodeType
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, "", ErrCodeInvalid, func() map[string]string {
			return map[string]string{"code_type": codeTypeLabel(codeType)}
		})
		return nil, ErrCodeInvalid
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitAudit(ctx, auditEventTwoFactorSuccess, true, user.ID, "", nil, func() map[string]string {
		return map[string]string{"code_type": codeTypeLabel(codeType)}
	})

	return &LoginResult{UserID: user.ID, Pair: pair}, nil
}

// maybeUpgradeHash re-hashes the password after a successful verification when
// the stored hash predates the current argon2 parameters. Best effort: a lost
// write race leaves the old hash in place.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *UserAccount, plainPassword string) {
	upgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}

	hash, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		return
	}

	user.PasswordHash = hash
	_ = e.updateUser(ctx, user)
}

func codeTypeLabel(t CodeType) string {
	switch t {
	case CodeTypeAuthenticator:
		return "authenticator"
	case CodeTypeEmail:
		return "email"
	case CodeTypeRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}
