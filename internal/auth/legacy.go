package auth

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ImportResult counts the outcome of ImportLegacy.
type ImportResult struct {
	Imported  int
	Existing  int
	Malformed int
}

// ImportLegacy registers every "username:password" line from r with store.
// Lines that do not split into exactly two non-empty fields are counted as
// malformed and skipped, as are pairs the store refuses as invalid input.
// Users already present are left untouched.
func ImportLegacy(r io.Reader, store CredentialStore) (ImportResult, error) {
	var result ImportResult

	raw, err := io.ReadAll(r)
	if err != nil {
		return result, fmt.Errorf("failed to read legacy users: %w", err)
	}

	for i, line := range strings.Split(string(raw), "\n") {
		text := strings.TrimRight(line, "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		parts := strings.Split(text, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			result.Malformed++
			continue
		}

		created, err := store.Register(parts[0], parts[1])
		if errors.Is(err, ErrInvalidUsername) || errors.Is(err, ErrPasswordTooLong) {
			result.Malformed++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("line %d: %w", i+1, err)
		}
		if created {
			result.Imported++
		} else {
			result.Existing++
		}
	}
	return result, nil
}
