package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adonese/signup/identity"
	"github.com/adonese/signup/profile"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when no profile row exists for an id.
var ErrNotFound = errors.New("store: not found")

// Store provides manual-SQL data access. It backs both the local identity
// provider and the local profile store.
type Store struct {
	DB   *DB
	opts StoreOptions
}

var (
	_ identity.AccountService = (*Store)(nil)
	_ profile.Store           = (*Store)(nil)
)

func New(db *DB, opts ...Option) *Store {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{DB: db, opts: options}
}

func (s *Store) ensureDB() (*sqlx.DB, error) {
	if s == nil || s.DB == nil || s.DB.DB == nil {
		return nil, fmt.Errorf("nil db")
	}
	return s.DB.DB, nil
}

// CreateAccount stores a new account with a bcrypt password hash.
func (s *Store) CreateAccount(ctx context.Context, email, password string) (identity.Account, error) {
	if err := identity.CheckCredentials(email, password); err != nil {
		return identity.Account{}, err
	}
	db, err := s.ensureDB()
	if err != nil {
		return identity.Account{}, &identity.CreateError{Reason: identity.ReasonOther, Err: err}
	}
	email = normalizeEmail(email)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return identity.Account{}, &identity.CreateError{Reason: identity.ReasonOther, Err: err}
	}

	acc := identity.Account{ID: s.opts.NewID(), Email: email}
	stmt := s.DB.Rebind("INSERT INTO accounts(id, email, password_hash, created_at) VALUES(?, ?, ?, ?)")
	if _, err := db.ExecContext(ctx, stmt, acc.ID, acc.Email, string(hashed), time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return identity.Account{}, &identity.CreateError{Reason: identity.ReasonEmailInUse, Err: err}
		}
		return identity.Account{}, &identity.CreateError{Reason: identity.ReasonOther, Err: err}
	}
	return acc, nil
}

// WriteProfile upserts the profile row for id.
func (s *Store) WriteProfile(ctx context.Context, id string, p profile.Profile) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New("store: empty profile id")
	}
	now := time.Now().UTC()
	stmt := s.DB.Rebind(`INSERT INTO profiles(id, email, role, popup_shown, disabled, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, role = excluded.role,
		popup_shown = excluded.popup_shown, disabled = excluded.disabled, updated_at = excluded.updated_at`)
	_, err = db.ExecContext(ctx, stmt, id, p.Email, p.Role, p.PopupShown, p.Disabled, now, now)
	return err
}

// ReadProfile fetches the profile row for id.
func (s *Store) ReadProfile(ctx context.Context, id string) (profile.Profile, error) {
	db, err := s.ensureDB()
	if err != nil {
		return profile.Profile{}, err
	}
	var p profile.Profile
	stmt := s.DB.Rebind("SELECT email, role, popup_shown, disabled FROM profiles WHERE id = ?")
	if err := db.GetContext(ctx, &p, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, err
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
