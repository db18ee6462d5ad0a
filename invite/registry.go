package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

const (
	codeLength   = 8
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxIssueAttempts bounds collision retries during code generation.
	maxIssueAttempts = 5
)

var (
	// ErrCodeNotFound signals an unknown or already consumed code.
	ErrCodeNotFound = errors.New("invite: code not found")
	// ErrCodeExists signals a generated code collided with a registered one.
	ErrCodeExists = errors.New("invite: code already registered")
)

// Registry maps single-use invite codes to pending deal ids. A code is
// consumed (removed) exactly once, at the moment a second party joins.
type Registry interface {
	Register(ctx context.Context, code string, dealID int64) error
	Lookup(ctx context.Context, code string) (int64, error)
	Consume(ctx context.Context, code string) (int64, error)
}

// Issue generates a fresh code and registers it for dealID, retrying on
// collision.
func Issue(ctx context.Context, reg Registry, dealID int64) (string, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		switch err := reg.Register(ctx, code, dealID); {
		case err == nil:
			return code, nil
		case errors.Is(err, ErrCodeExists):
			continue
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("invite: could not allocate a unique code after %d attempts", maxIssueAttempts)
}

// Normalize maps user input to registry form: upper-cased, surrounding
// whitespace removed.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("invite: read entropy: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
