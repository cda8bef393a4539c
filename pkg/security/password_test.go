package security

import (
	"strings"
	"testing"

	"github.com/cartfold/cartfold-backend/pkg/config"
)

func testHasher() *Hasher {
	// Small parameters keep the test fast.
	return NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h := testHasher()
	encoded, err := h.Hash("s3cret-password")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}

	ok, err := h.Verify("s3cret-password", encoded)
	if err != nil {
		t.Fatalf("verifying: %v", err)
	}
	if !ok {
		t.Fatal("expected match")
	}

	ok, err = h.Verify("wrong-password", encoded)
	if err != nil {
		t.Fatalf("verifying: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch")
	}
}

func TestHashesAreSalted(t *testing.T) {
	t.Parallel()

	h := testHasher()
	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	t.Parallel()

	if _, err := testHasher().Verify("pw", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
