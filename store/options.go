package store

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Option configures Store behavior.
type Option func(*StoreOptions)

// StoreOptions carries optional configuration for Store.
type StoreOptions struct {
	BcryptCost int
	NewID      func() string
}

func defaultOptions() StoreOptions {
	return StoreOptions{
		BcryptCost: bcrypt.DefaultCost,
		NewID:      uuid.NewString,
	}
}

// WithBcryptCost overrides the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(opts *StoreOptions) {
		opts.BcryptCost = cost
	}
}

// WithIDGenerator replaces the account id generator.
func WithIDGenerator(fn func() string) Option {
	return func(opts *StoreOptions) {
		if fn != nil {
			opts.NewID = fn
		}
	}
}
