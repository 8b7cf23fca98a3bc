package stampauth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory UserStore honoring the sentinel contract, including
// compare-and-swap semantics on Version.
type memStore struct {
	mu      sync.Mutex
	byID    map[string]*UserAccount
	byEmail map[string]string
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{
		byID:    make(map[string]*UserAccount),
		byEmail: make(map[string]string),
	}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *memStore) Add(_ context.Context, user *UserAccount) (*UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byEmail[user.Email]; dup {
		return nil, ErrAccountExists
	}

	record := user.Clone()
	if record.ID == "" {
		s.nextID++
		record.ID = fmt.Sprintf("u%d", s.nextID)
	}
	record.Version = 1

	s.byID[record.ID] = record
	s.byEmail[record.Email] = record.ID
	return record.Clone(), nil
}

func (s *memStore) Update(_ context.Context, user *UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if current.Version != user.Version {
		return ErrConcurrencyConflict
	}

	next := user.Clone()
	next.Version = user.Version + 1
	s.byID[user.ID] = next
	user.Version = next.Version
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.byID, id)
	return nil
}

// movableClock lets tests advance time explicitly.
type movableClock struct {
	mu sync.Mutex
	t  time.Time
}

func newMovableClock(start time.Time) *movableClock {
	return &movableClock{t: start}
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// captureMailer records every Send for assertion.
type captureMailer struct {
	mu    sync.Mutex
	sends []capturedMail
	err   error
}

type capturedMail struct {
	To   string
	Kind MailKind
	Data map[string]string
}

func (m *captureMailer) Send(_ context.Context, to string, kind MailKind, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sends = append(m.sends, capturedMail{To: to, Kind: kind, Data: data})
	return nil
}

func (m *captureMailer) Sent() []capturedMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]capturedMail, len(m.sends))
	copy(out, m.sends)
	return out
}

func (m *captureMailer) Last() (capturedMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sends) == 0 {
		return capturedMail{}, false
	}
	return m.sends[len(m.sends)-1], true
}

// seqRandom hands out values from a fixed sequence, wrapping around.
type seqRandom struct {
	mu     sync.Mutex
	values []int64
	pos    int
}

func (r *seqRandom) Int(max int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[r.pos%len(r.values)]
	r.pos++
	return v % max, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.RefreshKey = []byte("fedcba9876543210fedcba9876543210")
	// Keep argon2 cheap so the suite stays fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

var testStart = time.Unix(1_700_000_000, 0)

type engineFixture struct {
	engine *Engine
	store  *memStore
	mailer *captureMailer
	clock  *movableClock
}

func buildTestEngine(t *testing.T, cfg Config) *engineFixture {
	t.Helper()

	store := newMemStore()
	mailer := &captureMailer{}
	clock := newMovableClock(testStart)

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithMailer(mailer).
		WithClock(clock).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, store: store, mailer: mailer, clock: clock}
}

const (
	testEmail    = "alice@example.com"
	testPassword = "Correct-Horse-9"
)

func registerTestUser(t *testing.T, f *engineFixture) *RegisterResult {
	t.Helper()

	result, err := f.engine.Register(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}

// enrollTwoFactor walks the full setup flow and returns the authenticator
// secret plus the recovery code batch.
func enrollTwoFactor(t *testing.T, f *engineFixture, userID string) (string, []string) {
	t.Helper()

	setup, err := f.engine.SetupTwoFactor(context.Background(), userID)
	if err != nil {
		t.Fatalf("SetupTwoFactor failed: %v", err)
	}

	code := authenticatorCodeAt(t, setup.Secret, f.clock.Now(), f.engine.config.OneTimeCode)
	enrollment, err := f.engine.ConfirmTwoFactor(context.Background(), userID, code)
	if err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}

	return setup.Secret, enrollment.RecoveryCodes
}

func authenticatorCodeAt(t *testing.T, secretBase32 string, now time.Time, cfg OneTimeCodeConfig) string {
	t.Helper()

	key, err := base32NoPadding.DecodeString(secretBase32)
	if err != nil {
		t.Fatalf("decode authenticator secret: %v", err)
	}
	code, err := hotpCode(key, now.Unix()/int64(cfg.Period), cfg.Digits, cfg.Algorithm)
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	return code
}
