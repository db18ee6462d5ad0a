package invite

import (
	"context"
	"errors"
	"testing"
)

func TestIssueGeneratesNormalizedUniqueCodes(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := int64(1); i <= 50; i++ {
		code, err := Issue(ctx, reg, i)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("expected %d-char code, got %q", codeLength, code)
		}
		if code != Normalize(code) {
			t.Fatalf("expected upper-case code, got %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code issued: %q", code)
		}
		seen[code] = true
	}
}

func TestConsumeRemovesExactlyOnce(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	code, err := Issue(ctx, reg, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	dealID, err := reg.Consume(ctx, code)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if dealID != 42 {
		t.Fatalf("expected deal 42, got %d", dealID)
	}

	if _, err := reg.Consume(ctx, code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound on second consume, got %v", err)
	}
	if _, err := reg.Lookup(ctx, code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound on lookup after consume, got %v", err)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	if err := reg.Register(ctx, "ABCD1234", 7); err != nil {
		t.Fatalf("register: %v", err)
	}

	dealID, err := reg.Lookup(ctx, " abcd1234 ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if dealID != 7 {
		t.Fatalf("expected deal 7, got %d", dealID)
	}
}

func TestRegisterRejectsCollisions(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	if err := reg.Register(ctx, "SAMECODE", 1); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(ctx, "SAMECODE", 2); !errors.Is(err, ErrCodeExists) {
		t.Fatalf("expected ErrCodeExists, got %v", err)
	}
}
