// Package profile describes the application-level user document written next
// to every new account.
package profile

import (
	"context"
)

const (
	// Collection holds one document per account, keyed by account id.
	Collection = "users"
	RoleUser   = "user"
)

// Profile is the user document. PopupShown gates a one-time first-login
// notice elsewhere in the application.
type Profile struct {
	Email      string `firestore:"email" json:"email" db:"email"`
	Role       string `firestore:"role" json:"role" db:"role"`
	PopupShown bool   `firestore:"popupShown" json:"popupShown" db:"popup_shown"`
	Disabled   bool   `firestore:"disabled" json:"disabled" db:"disabled"`
}

// New returns the document written at registration time.
func New(email string) Profile {
	return Profile{
		Email:      email,
		Role:       RoleUser,
		PopupShown: false,
		Disabled:   false,
	}
}

// Store persists profile documents.
type Store interface {
	WriteProfile(ctx context.Context, id string, p Profile) error
}

// Reader loads the profile document written at registration.
type Reader interface {
	ReadProfile(ctx context.Context, id string) (Profile, error)
}
