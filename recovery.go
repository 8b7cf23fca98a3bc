package stampauth

import (
	"context"
	"errors"
)

const (
	recoveryCodeMin = 100000
	recoveryCodeMax = 999999

	// maxRedeemRetries bounds the optimistic-concurrency retry loop when two
	// redemptions race on the same record.
	maxRedeemRetries = 4
)

// recoveryCodeVault issues and redeems single-use recovery codes. Codes are
// stored on the user record; redemption is a compare-and-swap update so a code
// can never be consumed twice, even concurrently.
type recoveryCodeVault struct {
	store  UserStore
	random RandomSource
	config RecoveryConfig
}

func newRecoveryCodeVault(store UserStore, random RandomSource, cfg RecoveryConfig) *recoveryCodeVault {
	if cfg.Count <= 0 {
		cfg.Count = 5
	}
	return &recoveryCodeVault{store: store, random: random, config: cfg}
}

// NewCodes generates a fresh batch of unique six-digit codes in
// [100000, 999999]. The batch replaces any previously issued set.
func (v *recoveryCodeVault) NewCodes() ([]string, error) {
	if v == nil {
		return nil, ErrEngineNotReady
	}

	codes := make([]string, 0, v.config.Count)
	seen := make(map[string]struct{}, v.config.Count)
	for len(codes) < v.config.Count {
		n, err := v.random.Int(recoveryCodeMax - recoveryCodeMin + 1)
		if err != nil {
			return nil, err
		}
		code := formatRecoveryCode(recoveryCodeMin + n)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

// Redeem atomically removes code from the user's stored set. It returns true
// exactly once per issued code; a second redemption, concurrent or not,
// returns false. Lost compare-and-swap races are retried against a fresh read.
func (v *recoveryCodeVault) Redeem(ctx context.Context, userID, code string) (bool, error) {
	if v == nil {
		return false, ErrEngineNotReady
	}

	for attempt := 0; attempt < maxRedeemRetries; attempt++ {
		user, err := v.store.FindByID(ctx, userID)
		if err != nil {
			return false, err
		}

		idx := -1
		for i, c := range user.RecoveryCodes {
			if c == code {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false, nil
		}

		user.RecoveryCodes = append(user.RecoveryCodes[:idx], user.RecoveryCodes[idx+1:]...)
		if err := v.store.Update(ctx, user); err != nil {
			if errors.Is(err, ErrConcurrencyConflict) {
				continue
			}
			return false, err
		}
		return true, nil
	}

	return false, ErrConcurrencyConflict
}

func formatRecoveryCode(n int64) string {
	buf := [6]byte{}
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}
