package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyCredentials = errors.New("username and password are required")
	ErrInvalidUsername  = errors.New("username must not contain ':' or line breaks")
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
)

// bcrypt only considers the first 72 bytes of its input.
const maxPasswordBytes = 72

// CredentialStore checks and records username/password pairs.
type CredentialStore interface {
	// Validate reports whether the pair matches a stored user.
	Validate(username, password string) bool
	// Register adds a user. It returns false when the username is taken.
	Register(username, password string) (bool, error)
}

// FileCredentialStore keeps one "username:bcrypt-hash" line per user in a
// plain text file. Lines that do not split into exactly two fields are ignored.
type FileCredentialStore struct {
	fs   afero.Fs
	path string
	cost int
	mu   sync.Mutex
}

type CredentialOption func(*FileCredentialStore)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) CredentialOption {
	return func(s *FileCredentialStore) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func NewFileCredentialStore(fs afero.Fs, path string, opts ...CredentialOption) *FileCredentialStore {
	s := &FileCredentialStore{
		fs:   fs,
		path: path,
		cost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileCredentialStore) Validate(username, password string) bool {
	if username == "" || password == "" {
		return false
	}

	s.mu.Lock()
	_, users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return false
	}

	hash, ok := users[username]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *FileCredentialStore) Register(username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, ErrEmptyCredentials
	}
	if strings.ContainsAny(username, ":\r\n") {
		return false, ErrInvalidUsername
	}
	if len(password) > maxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, users, err := s.load()
	if err != nil {
		return false, err
	}
	if _, exists := users[username]; exists {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(raw)
	if len(raw) > 0 && raw[len(raw)-1] != '\n' {
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "%s:%s\n", username, hash)

	if err := s.writeAtomic(buf.Bytes()); err != nil {
		return false, err
	}
	return true, nil
}

// load returns the file content and the parsed users. A missing file is empty.
func (s *FileCredentialStore) load() ([]byte, map[string]string, error) {
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, map[string]string{}, nil
		}
		return nil, nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	return raw, parseCredentials(raw), nil
}

// parseCredentials maps usernames to hashes. Lines of any length that do not
// split into two fields are skipped; the first entry for a username wins.
func parseCredentials(raw []byte) map[string]string {
	users := make(map[string]string)
	for _, line := range strings.Split(string(raw), "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), ":")
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		if _, dup := users[parts[0]]; !dup {
			users[parts[0]] = parts[1]
		}
	}
	return users
}

func (s *FileCredentialStore) writeAtomic(data []byte) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}
