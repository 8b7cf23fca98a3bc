package stampauth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSetupTwoFactorGeneratesKeyOnce(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)

	first, err := f.engine.SetupTwoFactor(context.Background(), reg.UserID)
	if err != nil {
		t.Fatalf("SetupTwoFactor failed: %v", err)
	}
	if first.Secret == "" {
		t.Fatal("empty authenticator secret")
	}
	if !strings.HasPrefix(first.ProvisionURI, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URI: %s", first.ProvisionURI)
	}

	// Setup before confirmation returns the same pending secret.
	second, err := f.engine.SetupTwoFactor(context.Background(), reg.UserID)
	if err != nil {
		t.Fatalf("second SetupTwoFactor failed: %v", err)
	}
	if second.Secret != first.Secret {
		t.Fatal("pending authenticator secret was regenerated")
	}
}

func TestConfirmTwoFactorEnablesAndIssuesRecoveryCodes(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)

	before, err := f.store.FindByID(context.Background(), reg.UserID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}

	_, codes := enrollTwoFactor(t, f, reg.UserID)
	if len(codes) != 5 {
		t.Fatalf("expected 5 recovery codes, got %d", len(codes))
	}

	after, err := f.store.FindByID(context.Background(), reg.UserID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !after.TwoFactorEnabled {
		t.Fatal("two-factor not enabled")
	}
	if after.SecurityStamp == before.SecurityStamp {
		t.Fatal("security stamp did not rotate on enrollment")
	}
	if len(after.RecoveryCodes) != 5 {
		t.Fatalf("expected stored recovery codes, got %d", len(after.RecoveryCodes))
	}
}

func TestConfirmTwoFactorRejectsBadCode(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)

	if _, err := f.engine.SetupTwoFactor(context.Background(), reg.UserID); err != nil {
		t.Fatalf("SetupTwoFactor failed: %v", err)
	}

	_, err := f.engine.ConfirmTwoFactor(context.Background(), reg.UserID, "12345")
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}

	user, err := f.store.FindByID(context.Background(), reg.UserID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if user.TwoFactorEnabled {
		t.Fatal("two-factor enabled despite failed confirmation")
	}
}

func TestConfirmTwoFactorWithoutSetup(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)

	_, err := f.engine.ConfirmTwoFactor(context.Background(), reg.UserID, "123456")
	if !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("expected ErrTwoFactorNotConfigured, got %v", err)
	}
}

func TestSetupTwoFactorAlreadyEnabled(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)
	enrollTwoFactor(t, f, reg.UserID)

	if _, err := f.engine.SetupTwoFactor(context.Background(), reg.UserID); !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("expected ErrTwoFactorAlreadyEnabled from setup, got %v", err)
	}
	if _, err := f.engine.ConfirmTwoFactor(context.Background(), reg.UserID, "123456"); !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("expected ErrTwoFactorAlreadyEnabled from confirm, got %v", err)
	}
}

func TestAuthenticatorSurvivesEnrollmentStampRotation(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)
	secret, _ := enrollTwoFactor(t, f, reg.UserID)

	// Enrollment rotated the stamp; the independent authenticator key must
	// still verify.
	code := authenticatorCodeAt(t, secret, f.clock.Now(), f.engine.config.OneTimeCode)
	if _, err := f.engine.AuthenticateTwoFactor(context.Background(), reg.UserID, code, CodeTypeAuthenticator); err != nil {
		t.Fatalf("authenticator code rejected after enrollment: %v", err)
	}
}

func TestRegenerateRecoveryCodesReplacesBatch(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)
	secret, oldCodes := enrollTwoFactor(t, f, reg.UserID)

	code := authenticatorCodeAt(t, secret, f.clock.Now(), f.engine.config.OneTimeCode)
	enrollment, err := f.engine.RegenerateRecoveryCodes(context.Background(), reg.UserID, code)
	if err != nil {
		t.Fatalf("RegenerateRecoveryCodes failed: %v", err)
	}
	if len(enrollment.RecoveryCodes) != 5 {
		t.Fatalf("expected 5 codes, got %d", len(enrollment.RecoveryCodes))
	}

	// Old codes are dead.
	_, err = f.engine.AuthenticateTwoFactor(context.Background(), reg.UserID, oldCodes[0], CodeTypeRecovery)
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected old code rejected, got %v", err)
	}

	// New codes work.
	if _, err := f.engine.AuthenticateTwoFactor(context.Background(), reg.UserID, enrollment.RecoveryCodes[0], CodeTypeRecovery); err != nil {
		t.Fatalf("new recovery code rejected: %v", err)
	}
}

func TestRegenerateRecoveryCodesRequiresEnrollment(t *testing.T) {
	f := buildTestEngine(t, testConfig())
	reg := registerTestUser(t, f)

	_, err := f.engine.RegenerateRecoveryCodes(context.Background(), reg.UserID, "123456")
	if !errors.Is(err, ErrTwoFactorNotEnabled) {
		t.Fatalf("expected ErrTwoFactorNotEnabled, got %v", err)
	}
}
