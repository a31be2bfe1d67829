package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
)

type userCreator interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
}

// Firebase creates accounts with Firebase Authentication.
type Firebase struct {
	client userCreator
}

// NewFirebase builds the provider from an initialised Firebase app.
func NewFirebase(ctx context.Context, app *firebase.App) (*Firebase, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) CreateAccount(ctx context.Context, email, password string) (Account, error) {
	if err := CheckCredentials(email, password); err != nil {
		return Account{}, err
	}
	params := (&auth.UserToCreate{}).Email(strings.TrimSpace(email)).Password(password)
	u, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return Account{}, &CreateError{Reason: firebaseReason(err), Err: err}
	}
	if u == nil || u.UserInfo == nil {
		return Account{}, &CreateError{Reason: ReasonOther, Err: errors.New("firebase returned an empty user record")}
	}
	return Account{ID: u.UID, Email: u.Email}, nil
}

func firebaseReason(err error) Reason {
	if auth.IsEmailAlreadyExists(err) {
		return ReasonEmailInUse
	}
	msg := err.Error()
	// The SDK rejects bad arguments locally with untyped errors, and the
	// backend reports them as INVALID_ARGUMENT with the REST code in the text.
	switch {
	case strings.Contains(msg, "malformed email"), strings.Contains(msg, "INVALID_EMAIL"):
		return ReasonInvalidEmail
	case strings.Contains(msg, "at least 6 characters"), strings.Contains(msg, "WEAK_PASSWORD"):
		return ReasonWeakPassword
	case errorutils.IsAlreadyExists(err) && strings.Contains(msg, "EMAIL_EXISTS"):
		return ReasonEmailInUse
	}
	return ReasonOther
}
