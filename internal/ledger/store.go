package ledger

import (
	"context"
	"time"
)

// Store is the persistence contract the service depends on. The debt
// history is append-only and is the source of truth; player aggregates are
// derived state written only through ApplyDebt and SetAggregates.
//
// ApplyDebt and SetAggregates are atomic units: either every write they
// perform commits or none do. ApplyDebt reads the session state inside the
// same unit so eligibility cannot race a session transition.
type Store interface {
	// CreatePlayer registers a player. Returns ErrPlayerExists if the id is
	// already registered.
	CreatePlayer(ctx context.Context, id int64, name string) error

	// Player returns one player or ErrPlayerNotFound.
	Player(ctx context.Context, id int64) (*Player, error)

	// Players returns all players in registration order.
	Players(ctx context.Context) ([]Player, error)

	// Debts returns the full history, oldest first.
	Debts(ctx context.Context) ([]Debt, error)

	// ApplyDebt appends the record and projects it onto both players'
	// balances, and onto their net winnings when the record is eligible
	// under NetEligible. Returns ErrPlayerNotFound (and applies nothing) if
	// either party is unregistered.
	ApplyDebt(ctx context.Context, d Debt) error

	// SetAggregates replaces every player's balance and net winnings with
	// the supplied projection. Players absent from totals are zeroed.
	SetAggregates(ctx context.Context, totals map[int64]Aggregates) error

	// Session returns the singleton session state.
	Session(ctx context.Context) (Session, error)

	// StartSession opens a session, or returns ErrSessionActive if one is
	// already open.
	StartSession(ctx context.Context, bankID int64, start time.Time) error

	// EndSession closes the open session, or returns ErrNoSession.
	EndSession(ctx context.Context) error
}
