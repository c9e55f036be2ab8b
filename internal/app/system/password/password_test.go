package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	h, err := Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(h, "$2a$10$") {
		t.Errorf("unexpected hash prefix: %q", h[:7])
	}
	if !Verify("s3cret-pass", h) {
		t.Error("expected password to verify")
	}
	if Verify("wrong", h) {
		t.Error("expected wrong password to fail")
	}
}

func TestHash_Salted(t *testing.T) {
	a, _ := Hash("same")
	b, _ := Hash("same")
	if a == b {
		t.Error("expected distinct hashes for the same input")
	}
}

func TestVerify_BadHash(t *testing.T) {
	tests := []string{"", "not-a-bcrypt-hash", "$2a$10$short"}
	for _, h := range tests {
		if Verify("anything", h) {
			t.Errorf("Verify with hash %q returned true", h)
		}
	}
}
