package stampauth

import (
	"context"
	"errors"

	"github.com/stampauth/stampauth/token"
)

// Refresh exchanges a valid access/refresh pair for a fresh one. The access
// token may be expired; its signature, issuer, and audience must still verify,
// the refresh token must decrypt, be unexpired, and share the access token's
// id. The pair is additionally bound to the security stamp it was issued
// under: if the stamp has rotated since, the pair is rejected.
//
// Claims in the new pair are re-derived from the current user record, not
// copied from the old token.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	start := e.now()
	claims, issuedStamp, err := e.tokens.ValidatePair(accessToken, refreshToken, start)
	e.metricObserve(MetricValidateLatency, e.now().Sub(start))
	if err != nil {
		mapped := mapTokenError(err)
		e.metricInc(MetricRefreshFailure)
		if errors.Is(mapped, ErrTokenMismatch) {
			e.metricInc(MetricTokenMismatch)
		}
		e.emitAudit(ctx, auditEventRefreshFailure, false, "", "", mapped, nil)
		return nil, mapped
	}

	user, err := e.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshFailure, false, claims.Subject, "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Stamp binding: a password change, email confirmation, or two-factor
	// enrollment since issuance rotates the stamp and kills the pair.
	if issuedStamp == "" || issuedStamp != user.SecurityStamp {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, user.ID, "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "stamp_rotated"}
		})
		return nil, ErrTokenInvalid
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, "", nil, nil)

	return &LoginResult{UserID: user.ID, Pair: pair}, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrTokenMismatch):
		return ErrTokenMismatch
	case errors.Is(err, token.ErrTokenInvalid):
		return ErrTokenInvalid
	default:
		return err
	}
}
