package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines a public type used by stampauth APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodHS256 is an exported constant or variable used by the authentication engine.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 is an exported constant or variable used by the authentication engine.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("refresh token expired")
	// ErrTokenMismatch is an exported constant or variable used by the authentication engine.
	ErrTokenMismatch = errors.New("token pair mismatch")
)

// Config defines a public type used by stampauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	SigningMethod SigningMethod
	SigningKey    []byte
	VerifyKey     []byte

	Issuer   string
	Audience string
	// PartialAudience restricts tokens issued while a second factor is pending.
	// Pair validation rejects it.
	PartialAudience string

	AccessTTL time.Duration
	Leeway    time.Duration

	// RefreshKey is the AES-256 key encrypting refresh payloads (32 bytes).
	RefreshKey []byte
	RefreshTTL time.Duration
}

// SessionClaims defines a public type used by stampauth APIs.
//
// SessionClaims is the full claim set of an authenticated session. Reserved
// JWT claims (jti, iss, aud, exp, iat, nbf) never appear here; they belong to
// the token envelope, not the session.
type SessionClaims struct {
	Subject        string
	Email          string
	EmailConfirmed bool
	SecurityStamp  string
}

// Pair defines a public type used by stampauth APIs.
//
// Pair instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type accessClaims struct {
	Email          string `json:"email,omitempty"`
	EmailConfirmed bool   `json:"email_confirmed,omitempty"`
	SecurityStamp  string `json:"security_stamp,omitempty"`
	jwt.RegisteredClaims
}

// Manager defines a public type used by stampauth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("issuer and audience required")
	}
	if cfg.PartialAudience == cfg.Audience {
		return nil, errors.New("partial audience must differ from the primary audience")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.SigningKey) == 0 {
			return nil, errors.New("hs256 requires signing key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.SigningKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.VerifyKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if len(cfg.RefreshKey) != 32 {
		return nil, errors.New("refresh key must be 32 bytes")
	}

	return &Manager{config: cfg}, nil
}

// IssuePair creates an access token and its encrypted refresh counterpart.
// Both carry tokenID; the refresh payload additionally embeds the security
// stamp so a later stamp rotation invalidates the pair.
//
// IssuePair may return an error when input validation, dependency calls, or security checks fail.
// IssuePair does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) IssuePair(claims SessionClaims, tokenID string, now time.Time) (Pair, error) {
	if tokenID == "" {
		return Pair{}, errors.New("token id required")
	}

	access, err := m.signAccess(accessClaims{
		Email:          claims.Email,
		EmailConfirmed: claims.EmailConfirmed,
		SecurityStamp:  claims.SecurityStamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        tokenID,
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	})
	if err != nil {
		return Pair{}, err
	}

	expiresAt := now.Add(m.config.RefreshTTL)
	refresh, err := encryptRefresh(m.config.RefreshKey, refreshPayload{
		TokenID:       tokenID,
		SecurityStamp: claims.SecurityStamp,
		ExpiresAtMS:   expiresAt.UnixMilli(),
	})
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
	}, nil
}

// IssuePartial creates a restricted-audience access token for a login whose
// second factor is still pending. No refresh token accompanies it.
//
// IssuePartial may return an error when input validation, dependency calls, or security checks fail.
// IssuePartial does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) IssuePartial(subject, tokenID string, now time.Time) (string, error) {
	if m.config.PartialAudience == "" {
		return "", errors.New("partial audience not configured")
	}

	return m.signAccess(accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        tokenID,
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.PartialAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	})
}

// ValidatePair cross-checks an access/refresh pair. The access token's
// signature, issuer, and audience are verified while its expiry is ignored;
// the decrypted refresh payload carries the authoritative expiration. The two
// halves must share a token id.
//
// It returns the session claims from the access token and the security stamp
// embedded in the refresh payload at issuance.
//
// ValidatePair may return an error when input validation, dependency calls, or security checks fail.
// ValidatePair does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) ValidatePair(accessToken, refreshToken string, now time.Time) (SessionClaims, string, error) {
	claims, tokenID, err := m.parseAccessIgnoringExpiry(accessToken)
	if err != nil {
		return SessionClaims{}, "", err
	}

	payload, err := decryptRefresh(m.config.RefreshKey, refreshToken)
	if err != nil {
		return SessionClaims{}, "", ErrTokenInvalid
	}

	if now.After(time.UnixMilli(payload.ExpiresAtMS)) {
		return SessionClaims{}, "", ErrTokenExpired
	}

	if payload.TokenID == "" || payload.TokenID != tokenID {
		return SessionClaims{}, "", ErrTokenMismatch
	}

	return claims, payload.SecurityStamp, nil
}

func (m *Manager) signAccess(claims accessClaims) (string, error) {
	tok := jwt.NewWithClaims(m.method(), claims)
	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

func (m *Manager) parseAccessIgnoringExpiry(tokenStr string) (SessionClaims, string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey()
	})
	if err != nil {
		return SessionClaims{}, "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return SessionClaims{}, "", ErrTokenInvalid
	}

	// Claims validation is disabled above so expired access tokens still
	// parse; issuer and audience are enforced by hand instead.
	if claims.Issuer != m.config.Issuer {
		return SessionClaims{}, "", ErrTokenInvalid
	}
	if !audienceContains(claims.Audience, m.config.Audience) {
		return SessionClaims{}, "", ErrTokenInvalid
	}

	return SessionClaims{
		Subject:        claims.Subject,
		Email:          claims.Email,
		EmailConfirmed: claims.EmailConfirmed,
		SecurityStamp:  claims.SecurityStamp,
	}, claims.ID, nil
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.SigningKey, nil
	default:
		return parseEdPrivateKey(m.config.SigningKey)
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.SigningKey, nil
	default:
		return parseEdPublicKey(m.config.VerifyKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
