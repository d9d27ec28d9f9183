package driven

import "context"

// SessionTokenSlot is the name of the single durable slot holding the
// current session token. An absent slot means no session.
const SessionTokenSlot = "session"

// TokenStore defines the driven port for durable session token storage.
// Implementations may encrypt values at rest; this interface operates on
// the raw token at the domain boundary.
type TokenStore interface {
	// Get retrieves the token stored under name. Returns ("", nil) if the
	// slot is empty.
	Get(ctx context.Context, name string) (string, error)

	// Set stores or replaces the token under name.
	Set(ctx context.Context, name, token string) error

	// Delete removes the slot. Deleting an absent slot is not an error.
	Delete(ctx context.Context, name string) error
}
