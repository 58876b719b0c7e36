package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Service exposes the coarse ledger operations the front ends call. All
// state lives behind the Store; the service adds validation, the netting
// query, ranking, and the rebuild recovery path.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// AddPlayer registers a participant. Re-adding an existing id returns
// ErrPlayerExists without modifying anything.
func (s *Service) AddPlayer(ctx context.Context, id int64, name string) error {
	return s.store.CreatePlayer(ctx, id, name)
}

func (s *Service) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	return s.store.Player(ctx, id)
}

// GetPlayers returns all players in registration order.
func (s *Service) GetPlayers(ctx context.Context) ([]Player, error) {
	return s.store.Players(ctx)
}

// GetDebts returns the full debt history, oldest first.
func (s *Service) GetDebts(ctx context.Context) ([]Debt, error) {
	return s.store.Debts(ctx)
}

// AddDebt appends one debt record and applies its balance and net-winnings
// deltas as a single atomic unit. A debt from a player to itself is a valid
// no-op. The record's timestamp is assigned here.
func (s *Service) AddDebt(ctx context.Context, kind string, recipientID, payerID, amount int64) (Debt, error) {
	d := Debt{
		Kind:        kind,
		RecipientID: recipientID,
		PayerID:     payerID,
		Amount:      amount,
		Date:        s.now().UTC(),
	}
	if err := s.store.ApplyDebt(ctx, d); err != nil {
		return Debt{}, err
	}
	return d, nil
}

// Owed collapses the full history into one signed amount per counterparty
// of the given player. Positive: the counterparty owes the player.
// Counterparties whose net amount is zero are dropped.
func (s *Service) Owed(ctx context.Context, playerID int64) (map[int64]int64, error) {
	if _, err := s.store.Player(ctx, playerID); err != nil {
		return nil, err
	}
	debts, err := s.store.Debts(ctx)
	if err != nil {
		return nil, err
	}
	return net(debts, playerID), nil
}

// OwedSession is Owed restricted to positive-amount records dated inside
// the active session. Returns ErrNoSession when no session is open.
func (s *Service) OwedSession(ctx context.Context, playerID int64) (map[int64]int64, error) {
	sess, err := s.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return nil, ErrNoSession
	}
	if _, err := s.store.Player(ctx, playerID); err != nil {
		return nil, err
	}
	debts, err := s.store.Debts(ctx)
	if err != nil {
		return nil, err
	}
	var scoped []Debt
	for _, d := range debts {
		if d.Amount > 0 && !d.Date.Before(sess.StartTime) {
			scoped = append(scoped, d)
		}
	}
	return net(scoped, playerID), nil
}

func net(debts []Debt, playerID int64) map[int64]int64 {
	owed := make(map[int64]int64)
	for _, d := range debts {
		if d.RecipientID == d.PayerID {
			continue
		}
		if d.RecipientID == playerID {
			owed[d.PayerID] += d.Amount
		}
		if d.PayerID == playerID {
			owed[d.RecipientID] -= d.Amount
		}
	}
	for id, v := range owed {
		if v == 0 {
			delete(owed, id)
		}
	}
	return owed
}

// StartSession opens a session with the given bank player. Fails with
// ErrSessionActive if one is already open, ErrPlayerNotFound if the bank is
// not registered.
func (s *Service) StartSession(ctx context.Context, bankID int64) error {
	if _, err := s.store.Player(ctx, bankID); err != nil {
		return err
	}
	return s.store.StartSession(ctx, bankID, s.now().UTC())
}

// EndSession closes the open session and rebuilds all aggregates so the net
// winnings deferred during the session are folded in.
func (s *Service) EndSession(ctx context.Context) error {
	if err := s.store.EndSession(ctx); err != nil {
		return err
	}
	return s.RefreshBalances(ctx)
}

func (s *Service) GetSession(ctx context.Context) (Session, error) {
	return s.store.Session(ctx)
}

// RefreshBalances discards every cached aggregate and re-derives balances
// and net winnings from the full debt history. It is idempotent and is the
// designated recovery path: the append-only history always wins over the
// cached aggregates. The projection is validated before anything is
// written, so a failure leaves state untouched.
func (s *Service) RefreshBalances(ctx context.Context) error {
	debts, err := s.store.Debts(ctx)
	if err != nil {
		return err
	}
	sess, err := s.store.Session(ctx)
	if err != nil {
		return err
	}
	totals := Replay(debts, sess)

	players, err := s.store.Players(ctx)
	if err != nil {
		return err
	}
	registered := make(map[int64]bool, len(players))
	for _, p := range players {
		registered[p.ID] = true
	}
	var sum int64
	for id, a := range totals {
		if !registered[id] {
			return fmt.Errorf("debt history references unregistered player %d: %w", id, ErrIntegrity)
		}
		sum += a.Balance
	}
	if sum != 0 {
		return fmt.Errorf("balances sum to %d after replay: %w", sum, ErrIntegrity)
	}
	return s.store.SetAggregates(ctx, totals)
}

// Leaderboard returns all players ordered by net winnings, highest first.
// Ties keep registration order and share a rank; the next distinct value
// takes the next rank.
func (s *Service) Leaderboard(ctx context.Context) ([]Ranked, error) {
	players, err := s.store.Players(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].NetWinnings > players[j].NetWinnings
	})
	ranked := make([]Ranked, 0, len(players))
	rank := 0
	var prev int64
	for i, p := range players {
		if i == 0 || p.NetWinnings != prev {
			rank++
		}
		prev = p.NetWinnings
		ranked = append(ranked, Ranked{Rank: rank, Player: p})
	}
	return ranked, nil
}

// Rank returns the player's leaderboard rank.
func (s *Service) Rank(ctx context.Context, playerID int64) (int, error) {
	ranked, err := s.Leaderboard(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range ranked {
		if r.Player.ID == playerID {
			return r.Rank, nil
		}
	}
	return 0, ErrPlayerNotFound
}
