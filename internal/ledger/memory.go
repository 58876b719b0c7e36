package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and by deployments that
// do not need durability. All methods take the mutex for the whole
// operation, so every unit is atomic by construction.
type MemoryStore struct {
	mu      sync.Mutex
	order   []int64
	players map[int64]*Player
	debts   []Debt
	session Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[int64]*Player)}
}

func (m *MemoryStore) CreatePlayer(ctx context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[id]; ok {
		return ErrPlayerExists
	}
	m.players[id] = &Player{ID: id, Name: name}
	m.order = append(m.order, id)
	return nil
}

func (m *MemoryStore) Player(ctx context.Context, id int64) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) Players(ctx context.Context) ([]Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Player, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.players[id])
	}
	return out, nil
}

func (m *MemoryStore) Debts(ctx context.Context) ([]Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Debt, len(m.debts))
	copy(out, m.debts)
	return out, nil
}

func (m *MemoryStore) ApplyDebt(ctx context.Context, d Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipient, ok := m.players[d.RecipientID]
	if !ok {
		return ErrPlayerNotFound
	}
	payer, ok := m.players[d.PayerID]
	if !ok {
		return ErrPlayerNotFound
	}
	eligible := NetEligible(d.Amount, m.session)
	m.debts = append(m.debts, d)
	recipient.Balance += d.Amount
	payer.Balance -= d.Amount
	if eligible {
		recipient.NetWinnings += d.Amount
		payer.NetWinnings -= d.Amount
	}
	return nil
}

func (m *MemoryStore) SetAggregates(ctx context.Context, totals map[int64]Aggregates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		a := totals[p.ID]
		p.Balance = a.Balance
		p.NetWinnings = a.NetWinnings
	}
	return nil
}

func (m *MemoryStore) Session(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *MemoryStore) StartSession(ctx context.Context, bankID int64, start time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Active {
		return ErrSessionActive
	}
	m.session = Session{Active: true, StartTime: start, BankID: bankID}
	return nil
}

func (m *MemoryStore) EndSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Active {
		return ErrNoSession
	}
	m.session.Active = false
	return nil
}
