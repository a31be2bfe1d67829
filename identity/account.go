// Package identity creates login accounts with an external identity provider
// and classifies its failures into a closed set of reasons.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adonese/signup/validations"
)

// MinPasswordLength is the shortest password providers accept.
const MinPasswordLength = 6

// Account is the identity returned by a provider after a successful create.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Reason classifies why an account could not be created.
type Reason int

const (
	ReasonOther Reason = iota
	ReasonEmailInUse
	ReasonInvalidEmail
	ReasonWeakPassword
)

func (r Reason) String() string {
	switch r {
	case ReasonEmailInUse:
		return "email_in_use"
	case ReasonInvalidEmail:
		return "invalid_email"
	case ReasonWeakPassword:
		return "weak_password"
	default:
		return "registration_failed"
	}
}

// Reasons lists every classification, ReasonOther first.
func Reasons() []Reason {
	return []Reason{ReasonOther, ReasonEmailInUse, ReasonInvalidEmail, ReasonWeakPassword}
}

// CreateError is returned by providers when an account was not created.
type CreateError struct {
	Reason Reason
	Err    error
}

func (e *CreateError) Error() string {
	if e.Err == nil {
		return "create account: " + e.Reason.String()
	}
	return fmt.Sprintf("create account: %s: %v", e.Reason, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// Classify extracts the reason from err. Anything that is not a
// *CreateError is ReasonOther.
func Classify(err error) Reason {
	var ce *CreateError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ReasonOther
}

// AccountService creates accounts from an email/password pair.
type AccountService interface {
	CreateAccount(ctx context.Context, email, password string) (Account, error)
}

// CheckCredentials applies the provider-side rules before any remote call.
// The email check only rejects what the provider would reject locally;
// the password length is counted in characters, not bytes.
func CheckCredentials(email, password string) error {
	if err := validations.Var(strings.TrimSpace(email), "required,mailbox"); err != nil {
		return &CreateError{Reason: ReasonInvalidEmail, Err: err}
	}
	if err := validations.Var(password, fmt.Sprintf("min=%d", MinPasswordLength)); err != nil {
		return &CreateError{Reason: ReasonWeakPassword, Err: fmt.Errorf("password shorter than %d characters", MinPasswordLength)}
	}
	return nil
}
