package stampauth

import (
	"context"
	"strconv"
	"sync"
	"testing"
)

func TestNewCodesUniqueAndInRange(t *testing.T) {
	// A sequence with an early duplicate forces the dedupe path.
	random := &seqRandom{values: []int64{7, 7, 100, 250000, 899999, 42}}
	vault := newRecoveryCodeVault(newMemStore(), random, RecoveryConfig{Count: 5})

	codes, err := vault.NewCodes()
	if err != nil {
		t.Fatalf("NewCodes failed: %v", err)
	}
	if len(codes) != 5 {
		t.Fatalf("expected 5 codes, got %d", len(codes))
	}

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if len(code) != 6 {
			t.Fatalf("code %q is not six digits", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code %q in batch", code)
		}
		seen[code] = struct{}{}
	}
}

func TestRedeemConsumesCodeExactlyOnce(t *testing.T) {
	store := newMemStore()
	vault := newRecoveryCodeVault(store, &seqRandom{values: []int64{1}}, RecoveryConfig{Count: 5})

	user, err := store.Add(context.Background(), &UserAccount{
		Email:         "alice@example.com",
		SecurityStamp: "stamp-a",
		RecoveryCodes: []string{"111111", "222222"},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ok, err := vault.Redeem(context.Background(), user.ID, "111111")
	if err != nil || !ok {
		t.Fatalf("first redemption failed, ok=%v err=%v", ok, err)
	}

	ok, err = vault.Redeem(context.Background(), user.ID, "111111")
	if err != nil {
		t.Fatalf("second redemption returned error: %v", err)
	}
	if ok {
		t.Fatal("code redeemed twice")
	}

	// The untouched code is still there.
	ok, err = vault.Redeem(context.Background(), user.ID, "222222")
	if err != nil || !ok {
		t.Fatalf("sibling code lost, ok=%v err=%v", ok, err)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	store := newMemStore()
	vault := newRecoveryCodeVault(store, &seqRandom{values: []int64{1}}, RecoveryConfig{Count: 5})

	user, err := store.Add(context.Background(), &UserAccount{
		Email:         "alice@example.com",
		SecurityStamp: "stamp-a",
		RecoveryCodes: []string{"111111"},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ok, err := vault.Redeem(context.Background(), user.ID, "999999")
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	if ok {
		t.Fatal("unknown code redeemed")
	}
}

func TestRedeemConcurrentSingleWinner(t *testing.T) {
	store := newMemStore()
	vault := newRecoveryCodeVault(store, &seqRandom{values: []int64{1}}, RecoveryConfig{Count: 5})

	user, err := store.Add(context.Background(), &UserAccount{
		Email:         "alice@example.com",
		SecurityStamp: "stamp-a",
		RecoveryCodes: []string{"123456"},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ok, err := vault.Redeem(context.Background(), user.ID, "123456")
			if err != nil {
				t.Errorf("unexpected redeem error: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning redemption, got %d", wins)
	}
}
