package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stampauth/stampauth"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "test")
}

func testUser() *stampauth.UserAccount {
	return &stampauth.UserAccount{
		Email:         "alice@example.com",
		PasswordHash:  "$argon2id$...",
		SecurityStamp: "stamp-a",
		RecoveryCodes: []string{"100001", "100002"},
	}
}

func TestAddAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Add(ctx, testUser())
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if added.ID == "" {
		t.Fatal("Add did not assign an id")
	}
	if added.Version != 1 {
		t.Fatalf("expected version 1, got %d", added.Version)
	}

	byID, err := store.FindByID(ctx, added.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != "alice@example.com" || byID.SecurityStamp != "stamp-a" {
		t.Fatalf("record round trip mismatch: %+v", byID)
	}
	if len(byID.RecoveryCodes) != 2 {
		t.Fatalf("recovery codes lost: %v", byID.RecoveryCodes)
	}

	byEmail, err := store.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.ID != added.ID {
		t.Fatalf("email index points at %q, want %q", byEmail.ID, added.ID)
	}
}

func TestFindByEmailIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, testUser()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if _, err := store.FindByEmail(ctx, "ALICE@Example.COM"); err != nil {
		t.Fatalf("mixed-case lookup failed: %v", err)
	}
}

func TestFindMissingUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, stampauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, stampauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAddDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, testUser()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, err := store.Add(ctx, testUser())
	if !errors.Is(err, stampauth.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAddDoesNotAliasInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := testUser()
	added, err := store.Add(ctx, in)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	in.RecoveryCodes[0] = "mutated"

	got, err := store.FindByID(ctx, added.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.RecoveryCodes[0] != "100001" {
		t.Fatal("stored record aliased the caller's slice")
	}
}

func TestUpdateAdvancesVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Add(ctx, testUser())
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	user.SecurityStamp = "stamp-b"
	if err := store.Update(ctx, user); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if user.Version != 2 {
		t.Fatalf("expected caller's version advanced to 2, got %d", user.Version)
	}

	got, err := store.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.SecurityStamp != "stamp-b" || got.Version != 2 {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Add(ctx, testUser())
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	stale := user.Clone()

	user.SecurityStamp = "stamp-b"
	if err := store.Update(ctx, user); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stale.SecurityStamp = "stamp-c"
	if err := store.Update(ctx, stale); !errors.Is(err, stampauth.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ghost := testUser()
	ghost.ID = "missing"
	ghost.Version = 1

	if err := store.Update(ctx, ghost); !errors.Is(err, stampauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateRejectsEmailChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Add(ctx, testUser())
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	user.Email = "other@example.com"
	if err := store.Update(ctx, user); err == nil {
		t.Fatal("expected email change rejection")
	}
}

func TestDeleteRemovesUserAndIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Add(ctx, testUser())
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.FindByID(ctx, user.ID); !errors.Is(err, stampauth.ErrUserNotFound) {
		t.Fatalf("record survived delete: %v", err)
	}
	if _, err := store.FindByEmail(ctx, user.Email); !errors.Is(err, stampauth.ErrUserNotFound) {
		t.Fatalf("email index survived delete: %v", err)
	}

	// Email is reusable once the index entry is gone.
	if _, err := store.Add(ctx, testUser()); err != nil {
		t.Fatalf("re-Add after delete failed: %v", err)
	}
}

func TestDeleteMissingUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Delete(ctx, "missing"); !errors.Is(err, stampauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
