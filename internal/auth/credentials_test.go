package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) (*FileCredentialStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewFileCredentialStore(fs, "data/users.txt", WithBcryptCost(bcrypt.MinCost)), fs
}

func TestRegisterAndValidate(t *testing.T) {
	store, fs := newTestStore(t)

	ok, err := store.Register("alice", "s3cret")
	if err != nil || !ok {
		t.Fatalf("Register = %v, %v", ok, err)
	}
	if !store.Validate("alice", "s3cret") {
		t.Error("valid credentials rejected")
	}
	if store.Validate("alice", "wrong") {
		t.Error("wrong password accepted")
	}
	if store.Validate("bob", "s3cret") {
		t.Error("unknown user accepted")
	}

	raw, err := afero.ReadFile(fs, "data/users.txt")
	if err != nil {
		t.Fatalf("read users file: %v", err)
	}
	line := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(line, "alice:$2") {
		t.Errorf("unexpected stored line %q", line)
	}
	if strings.Contains(line, "s3cret") {
		t.Error("password stored in clear text")
	}
	if exists, _ := afero.Exists(fs, "data/users.txt.tmp"); exists {
		t.Error("temporary file left behind")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	store, _ := newTestStore(t)

	if ok, err := store.Register("alice", "one"); !ok || err != nil {
		t.Fatalf("first Register = %v, %v", ok, err)
	}
	ok, err := store.Register("alice", "two")
	if err != nil {
		t.Fatalf("duplicate Register error: %v", err)
	}
	if ok {
		t.Error("duplicate username registered")
	}
	if !store.Validate("alice", "one") || store.Validate("alice", "two") {
		t.Error("duplicate registration changed the stored password")
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		username, password string
		want               error
	}{
		{"", "pw", ErrEmptyCredentials},
		{"alice", "", ErrEmptyCredentials},
		{"al:ice", "pw", ErrInvalidUsername},
		{"al\nice", "pw", ErrInvalidUsername},
	}
	for _, tt := range tests {
		ok, err := store.Register(tt.username, tt.password)
		if ok || !errors.Is(err, tt.want) {
			t.Errorf("Register(%q, %q) = %v, %v; want %v", tt.username, tt.password, ok, err, tt.want)
		}
	}
}

func TestMalformedLinesIgnored(t *testing.T) {
	store, fs := newTestStore(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	content := "garbage line\n" +
		"too:many:parts\n" +
		"\n" +
		"carol:" + string(hash) + "\n"
	if err := afero.WriteFile(fs, "data/users.txt", []byte(content), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if !store.Validate("carol", "pw") {
		t.Error("valid user after malformed lines rejected")
	}
	if store.Validate("too", "many:parts") {
		t.Error("malformed line treated as a user")
	}

	if ok, err := store.Register("dave", "pw2"); !ok || err != nil {
		t.Fatalf("Register = %v, %v", ok, err)
	}
	raw, _ := afero.ReadFile(fs, "data/users.txt")
	if !strings.HasPrefix(string(raw), content) {
		t.Error("existing lines were not preserved")
	}
}

func TestValidateMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	if store.Validate("alice", "pw") {
		t.Error("validation succeeded without a credentials file")
	}
}

func TestConcurrentRegister(t *testing.T) {
	store, _ := newTestStore(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Register("same", "pw")
			if err != nil {
				t.Errorf("Register: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly one successful registration, got %d", created)
	}
}

func TestOversizedLineDoesNotLockOutUsers(t *testing.T) {
	store, fs := newTestStore(t)

	if ok, err := store.Register("alice", "pw"); !ok || err != nil {
		t.Fatalf("Register = %v, %v", ok, err)
	}
	raw, err := afero.ReadFile(fs, "data/users.txt")
	if err != nil {
		t.Fatalf("read users file: %v", err)
	}
	raw = append(raw, strings.Repeat("x", 70000)+"\n"...)
	if err := afero.WriteFile(fs, "data/users.txt", raw, 0o600); err != nil {
		t.Fatalf("append long line: %v", err)
	}

	if !store.Validate("alice", "pw") {
		t.Error("existing user rejected after a long malformed line")
	}
	if ok, err := store.Register("bob", "pw"); !ok || err != nil {
		t.Fatalf("Register after long line = %v, %v", ok, err)
	}
	if !store.Validate("bob", "pw") {
		t.Error("user registered after a long line cannot log in")
	}
}

func TestRegisterRejectsLongPassword(t *testing.T) {
	store, fs := newTestStore(t)

	ok, err := store.Register("alice", strings.Repeat("p", 80))
	if ok || !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Register(80-byte password) = %v, %v; want ErrPasswordTooLong", ok, err)
	}
	if exists, _ := afero.Exists(fs, "data/users.txt"); exists {
		t.Error("credentials file written for a rejected password")
	}

	if ok, err := store.Register("bob", strings.Repeat("p", 72)); !ok || err != nil {
		t.Errorf("Register(72-byte password) = %v, %v", ok, err)
	}
}
