package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/adonese/signup/identity"
	"github.com/adonese/signup/profile"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), ConnOptions{Path: dbPath, Driver: "sqlite"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, WithBcryptCost(bcrypt.MinCost))
}

func TestStore_CreateAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc, err := s.CreateAccount(ctx, "A@B.com", "123456")
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if acc.ID == "" {
		t.Fatalf("CreateAccount() returned empty id")
	}
	if acc.Email != "a@b.com" {
		t.Errorf("CreateAccount() email = %q, want %q", acc.Email, "a@b.com")
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     identity.Reason
	}{
		{"duplicate", "a@b.com", "123456", identity.ReasonEmailInUse},
		{"duplicate different case", " A@b.COM ", "abcdef", identity.ReasonEmailInUse},
		{"malformed email", "a@", "123456", identity.ReasonInvalidEmail},
		{"weak password", "c@d.com", "123", identity.ReasonWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateAccount(ctx, tt.email, tt.password)
			if err == nil {
				t.Fatalf("CreateAccount() error = nil, want %v", tt.want)
			}
			if got := identity.Classify(err); got != tt.want {
				t.Errorf("Classify() = %v, want %v (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestStore_Profiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ReadProfile(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadProfile() error = %v, want ErrNotFound", err)
	}
	if err := s.WriteProfile(ctx, "", profile.New("a@b.com")); err == nil {
		t.Fatalf("WriteProfile() with empty id succeeded")
	}

	if err := s.WriteProfile(ctx, "uid-1", profile.New("a@b.com")); err != nil {
		t.Fatalf("WriteProfile() error = %v", err)
	}
	got, err := s.ReadProfile(ctx, "uid-1")
	if err != nil {
		t.Fatalf("ReadProfile() error = %v", err)
	}
	want := profile.Profile{Email: "a@b.com", Role: "user", PopupShown: false, Disabled: false}
	if got != want {
		t.Errorf("ReadProfile() = %+v, want %+v", got, want)
	}

	updated := want
	updated.PopupShown = true
	if err := s.WriteProfile(ctx, "uid-1", updated); err != nil {
		t.Fatalf("WriteProfile() upsert error = %v", err)
	}
	got, _ = s.ReadProfile(ctx, "uid-1")
	if !got.PopupShown {
		t.Errorf("upsert did not replace the document: %+v", got)
	}
}

func TestStore_NilDB(t *testing.T) {
	var s *Store
	if _, err := s.CreateAccount(context.Background(), "a@b.com", "123456"); identity.Classify(err) != identity.ReasonOther {
		t.Errorf("CreateAccount() on nil store = %v, want ReasonOther", err)
	}
}

func Test_toSnake(t *testing.T) {
	tests := []struct {
		have string
		want string
	}{
		{"ID", "id"},
		{"Email", "email"},
		{"PasswordHash", "password_hash"},
		{"PopupShown", "popup_shown"},
	}
	for _, tt := range tests {
		t.Run(tt.have, func(t *testing.T) {
			if got := toSnake(tt.have); got != tt.want {
				t.Errorf("toSnake(%q) = %q, want %q", tt.have, got, tt.want)
			}
		})
	}
}

func TestStore_IDGenerator(t *testing.T) {
	base := newTestStore(t)
	next := 0
	s := New(base.DB, WithBcryptCost(bcrypt.MinCost), WithIDGenerator(func() string {
		next++
		return fmt.Sprintf("acct-%d", next)
	}))

	for i, email := range []string{"one@b.com", "two@b.com"} {
		acc, err := s.CreateAccount(context.Background(), email, "123456")
		if err != nil {
			t.Fatalf("CreateAccount(%q) error = %v", email, err)
		}
		if want := fmt.Sprintf("acct-%d", i+1); acc.ID != want {
			t.Errorf("CreateAccount(%q) id = %q, want %q", email, acc.ID, want)
		}
	}
}

func TestConnOptions_resolve(t *testing.T) {
	tests := []struct {
		name       string
		opts       ConnOptions
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"default sqlite", ConnOptions{}, DriverSQLite, "signup.db", false},
		{"sqlite path", ConnOptions{Path: "/tmp/x.db"}, DriverSQLite, "/tmp/x.db", false},
		{"url means postgres", ConnOptions{URL: "postgres://u@h/db"}, DriverPostgres, "postgres://u@h/db", false},
		{"forced sqlite ignores url", ConnOptions{URL: "postgres://u@h/db", Path: "a.db", Driver: "sqlite"}, DriverSQLite, "a.db", false},
		{"postgres without url", ConnOptions{Driver: "postgres"}, "", "", true},
		{"unknown driver", ConnOptions{Driver: "mysql"}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := tt.opts.resolve()
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if driver != tt.wantDriver || dsn != tt.wantDSN {
				t.Errorf("resolve() = (%q, %q), want (%q, %q)", driver, dsn, tt.wantDriver, tt.wantDSN)
			}
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), ConnOptions{Driver: "mysql"}); err == nil {
		t.Fatalf("Open() with unsupported driver succeeded")
	}
}
