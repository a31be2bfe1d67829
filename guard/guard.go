// Package guard serialises work per key for a bounded time. Registration
// uses it so a second submission for the same email is refused while the
// first is still talking to the identity provider.
package guard

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned by Acquire when the key is already held.
var ErrBusy = errors.New("guard: key is busy")

// DefaultTTL bounds how long a crashed holder can block a key.
const DefaultTTL = 30 * time.Second

// Guard hands out exclusive, expiring claims on keys.
type Guard interface {
	// Acquire claims key. The returned release func is safe to call more
	// than once and never releases a claim taken by someone else.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
