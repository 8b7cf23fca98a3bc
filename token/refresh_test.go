package token

import (
	"encoding/base64"
	"testing"
)

var refreshTestKey = []byte("fedcba9876543210fedcba9876543210")

func TestRefreshPayloadRoundTrip(t *testing.T) {
	in := refreshPayload{
		TokenID:       "jti-1",
		SecurityStamp: "stamp-a",
		ExpiresAtMS:   1_700_000_000_000,
	}

	sealed, err := encryptRefresh(refreshTestKey, in)
	if err != nil {
		t.Fatalf("encryptRefresh failed: %v", err)
	}

	out, err := decryptRefresh(refreshTestKey, sealed)
	if err != nil {
		t.Fatalf("decryptRefresh failed: %v", err)
	}
	if out != in {
		t.Fatalf("payload round trip mismatch: %+v", out)
	}
}

func TestDecryptRefreshRejectsWrongKey(t *testing.T) {
	sealed, err := encryptRefresh(refreshTestKey, refreshPayload{TokenID: "jti-1"})
	if err != nil {
		t.Fatalf("encryptRefresh failed: %v", err)
	}

	otherKey := []byte("0123456789abcdef0123456789abcdef")
	if _, err := decryptRefresh(otherKey, sealed); err == nil {
		t.Fatal("expected decryption under the wrong key to fail")
	}
}

func TestDecryptRefreshRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%%"},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, 16))},
		{"ragged length", base64.StdEncoding.EncodeToString(make([]byte, 40))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decryptRefresh(refreshTestKey, tc.token); err == nil {
				t.Fatal("expected rejection")
			}
		})
	}
}

func TestPKCS7UnpadRejectsBadPadding(t *testing.T) {
	block := make([]byte, 16)
	block[15] = 0 // zero pad byte is never valid
	if _, err := pkcs7Unpad(block, 16); err == nil {
		t.Fatal("expected zero padding rejection")
	}

	block[15] = 17 // pad larger than the block
	if _, err := pkcs7Unpad(block, 16); err == nil {
		t.Fatal("expected oversized padding rejection")
	}

	block[14] = 3
	block[15] = 2 // inconsistent pad bytes
	if _, err := pkcs7Unpad(block, 16); err == nil {
		t.Fatal("expected inconsistent padding rejection")
	}
}
