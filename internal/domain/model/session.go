package model

// SessionState is the derived, read-only projection of the session
// lifecycle consumed by the view layer.
type SessionState string

const (
	// SessionLoading exists only while Initialize is restoring a persisted
	// token; it is never observed after startup completes.
	SessionLoading SessionState = "loading"

	// SessionAuthenticated means a token is held and the last validation
	// against the API succeeded.
	SessionAuthenticated SessionState = "authenticated"

	// SessionUnauthenticated means no token is held.
	SessionUnauthenticated SessionState = "unauthenticated"

	// SessionErrored means a token is held but the last validation failed
	// for transport reasons. The token is preserved; the next validation
	// either heals the session or rejects it outright.
	SessionErrored SessionState = "errored"
)

// Session is a point-in-time snapshot of the session manager's state.
// User is nil unless State is SessionAuthenticated or SessionErrored
// with a previously validated identity.
type Session struct {
	State   SessionState
	User    *User
	Message string
}

// Authenticated reports whether the snapshot represents a usable session.
func (s Session) Authenticated() bool {
	return s.State == SessionAuthenticated
}
