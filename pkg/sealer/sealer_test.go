package sealer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString("lfQVRuulcL2iOhOJ2r8BYTweoSKwVAJnIF9U+AL+M60=")
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestSealOpen(t *testing.T) {
	s, err := New(testKey(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	token, err := s.Seal("req-123", PurposeConfirmation)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	id, purpose, err := s.Open(token)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if id != "req-123" || purpose != PurposeConfirmation {
		t.Errorf("Open() = %q, %q", id, purpose)
	}
}

func TestSeal_DistinctPerCall(t *testing.T) {
	s, _ := New(testKey(t))

	a, _ := s.Seal("req-1", PurposeConfirmation)
	b, _ := s.Seal("req-1", PurposeConfirmation)
	c, _ := s.Seal("req-1", PurposeApproval)
	if a == b || a == c {
		t.Error("tokens for the same request must differ")
	}
}

func TestOpen_Rejects(t *testing.T) {
	s, _ := New(testKey(t))
	token, _ := s.Seal("req-1", PurposeApproval)

	otherKey := bytes.Repeat([]byte{7}, 32)
	other, _ := New(otherKey)

	tests := []struct {
		name   string
		sealer *Sealer
		token  string
	}{
		{"not base64", s, "%%%"},
		{"too short", s, "AAAA"},
		{"tampered", s, token[:len(token)-2] + "AA"},
		{"wrong key", other, token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tt.sealer.Open(tt.token); !errors.Is(err, ErrMalformedToken) {
				t.Errorf("Open() error = %v, want ErrMalformedToken", err)
			}
		})
	}
}

func TestNew_BadKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Error("expected error for invalid AES key length")
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher("0123456789abcdef")

	a := h.Hash("ada@example.com")
	if a != h.Hash("ada@example.com") {
		t.Error("hash must be deterministic")
	}
	if a == h.Hash("bob@example.com") {
		t.Error("different inputs must hash differently")
	}
	if a == NewHasher("another-secret-value").Hash("ada@example.com") {
		t.Error("hash must depend on the secret")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %d chars", len(a))
	}
}
