package stampauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// PurposeEmailConfirmation is an exported constant or variable used by the authentication engine.
	PurposeEmailConfirmation = "EmailConfirmation"
	// PurposeTwoFactor is an exported constant or variable used by the authentication engine.
	PurposeTwoFactor = "TwoFactor"
)

const authenticatorKeyBytes = 20

var base32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// oneTimeCodeEngine derives purpose-scoped TOTP secrets from a user's security
// stamp and verifies authenticator-app codes against the stored key. Rotating
// the stamp invalidates every outstanding stamp-derived code at once.
type oneTimeCodeEngine struct {
	config OneTimeCodeConfig
}

func newOneTimeCodeEngine(cfg OneTimeCodeConfig) *oneTimeCodeEngine {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if cfg.Period <= 0 {
		cfg.Period = 30
	}
	if cfg.Digits <= 0 {
		cfg.Digits = 6
	}
	return &oneTimeCodeEngine{config: cfg}
}

// DeriveSecret computes the stamp-scoped secret for a purpose and user:
// base32 (no padding) of HMAC-SHA256 keyed by the security stamp over
// "Totp:{purpose}:{userID}". The same inputs always yield the same secret.
func (m *oneTimeCodeEngine) DeriveSecret(purpose, userID, securityStamp string) string {
	modifier := "Totp:" + purpose + ":" + userID
	mac := hmac.New(sha256.New, []byte(securityStamp))
	_, _ = mac.Write([]byte(modifier))
	return base32NoPadding.EncodeToString(mac.Sum(nil))
}

// Generate produces the current code for a purpose, user, and stamp.
func (m *oneTimeCodeEngine) Generate(purpose, userID, securityStamp string, now time.Time) (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}
	secret := m.DeriveSecret(purpose, userID, securityStamp)
	counter := now.Unix() / int64(m.config.Period)
	return hotpCode([]byte(secret), counter, m.config.Digits, m.config.Algorithm)
}

// Validate checks a submitted code against the stamp-derived secret within the
// configured skew window. Codes that are not exactly Digits decimal digits are
// rejected before any HMAC computation.
func (m *oneTimeCodeEngine) Validate(purpose, userID, securityStamp, code string, now time.Time) (bool, error) {
	if m == nil {
		return false, ErrEngineNotReady
	}
	secret := m.DeriveSecret(purpose, userID, securityStamp)
	return m.verify([]byte(secret), code, now)
}

// GenerateAuthenticatorKey returns a fresh random secret for authenticator-app
// enrollment, base32 encoded without padding.
func (m *oneTimeCodeEngine) GenerateAuthenticatorKey() (string, error) {
	raw := make([]byte, authenticatorKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32NoPadding.EncodeToString(raw), nil
}

// ProvisionURI renders the otpauth:// URI authenticator apps scan at setup.
func (m *oneTimeCodeEngine) ProvisionURI(secretBase32, account string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", strings.ToUpper(m.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyAuthenticatorCode checks a code against the user's enrolled
// authenticator key. The key is independent of the security stamp, so enabling
// two-factor (which rotates the stamp) does not break the enrolled app.
func (m *oneTimeCodeEngine) VerifyAuthenticatorCode(keyBase32, code string, now time.Time) (bool, error) {
	if m == nil {
		return false, ErrEngineNotReady
	}
	key, err := base32NoPadding.DecodeString(strings.TrimSpace(keyBase32))
	if err != nil {
		return false, fmt.Errorf("invalid authenticator key: %w", err)
	}
	return m.verify(key, code, now)
}

func (m *oneTimeCodeEngine) verify(secret []byte, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false, nil
	}

	if len(secret) == 0 {
		return false, errors.New("empty one-time code secret")
	}

	baseCounter := now.Unix() / int64(m.config.Period)
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	code := bin % mod
	return fmt.Sprintf("%0*d", digits, code), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported one-time code algorithm")
	}
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
