package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)
	id := uuid.New()

	cursor, err := Decode(Encode(createdAt, id))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cursor == nil {
		t.Fatal("expected non-nil cursor")
	}
	if !cursor.CreatedAt.Equal(createdAt) {
		t.Fatalf("timestamp mismatch: %s", cursor.CreatedAt)
	}
	if cursor.ID != id {
		t.Fatalf("id mismatch: %s", cursor.ID)
	}
}

func TestDecodeEmptyIsFirstPage(t *testing.T) {
	t.Parallel()

	cursor, err := Decode("")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cursor != nil {
		t.Fatal("expected nil cursor for empty token")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"%%%", "bm90LWEtY3Vyc29y", "fHw"} {
		if _, err := Decode(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	if got := ClampLimit(0); got != DefaultLimit {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ClampLimit(-5); got != DefaultLimit {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ClampLimit(1000); got != MaxLimit {
		t.Fatalf("expected max, got %d", got)
	}
	if got := ClampLimit(42); got != 42 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}
