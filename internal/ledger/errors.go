package ledger

import "errors"

var (
	// ErrPlayerNotFound is returned for operations referencing an
	// unregistered player id.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrPlayerExists is returned when registering an id that is already a
	// player. Registration is idempotent; callers may treat this as a no-op.
	ErrPlayerExists = errors.New("player already exists")

	// ErrSessionActive is returned by StartSession while a session is open.
	ErrSessionActive = errors.New("a session is already active")

	// ErrNoSession is returned by session operations that require an open
	// session.
	ErrNoSession = errors.New("no active session")

	// ErrIntegrity indicates the zero-sum invariant does not hold for the
	// stored history, e.g. debt records referencing unregistered players.
	// Recovery is a rebuild after the history is corrected.
	ErrIntegrity = errors.New("ledger integrity violation")
)
