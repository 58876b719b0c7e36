package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestService returns a service over a fresh memory store with a
// deterministic clock that advances one minute per call.
func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store)
	t := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
	return svc, store
}

func addPlayers(t *testing.T, svc *Service, players map[int64]string) {
	t.Helper()
	// Fixed registration order so leaderboard ties are reproducible.
	for _, id := range []int64{1, 2, 3, 9} {
		name, ok := players[id]
		if !ok {
			continue
		}
		if err := svc.AddPlayer(context.Background(), id, name); err != nil {
			t.Fatalf("AddPlayer(%d): %v", id, err)
		}
	}
}

func assertZeroSum(t *testing.T, svc *Service) {
	t.Helper()
	players, err := svc.GetPlayers(context.Background())
	if err != nil {
		t.Fatalf("GetPlayers: %v", err)
	}
	var sum int64
	for _, p := range players {
		sum += p.Balance
	}
	if sum != 0 {
		t.Fatalf("balances sum to %d, want 0", sum)
	}
}

func TestAddPlayerIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.AddPlayer(ctx, 1, "alice"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	err := svc.AddPlayer(ctx, 1, "alice")
	if !errors.Is(err, ErrPlayerExists) {
		t.Fatalf("AddPlayer duplicate = %v, want ErrPlayerExists", err)
	}
	p, err := svc.GetPlayer(ctx, 1)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if p.Name != "alice" || p.Balance != 0 || p.NetWinnings != 0 {
		t.Errorf("player after duplicate add = %+v", p)
	}
}

func TestAddDebtUnknownPlayer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice"})

	if _, err := svc.AddDebt(ctx, KindBuyin, 1, 42, 5000); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("AddDebt unknown payer = %v, want ErrPlayerNotFound", err)
	}
	// Nothing may have been applied.
	p, _ := svc.GetPlayer(ctx, 1)
	if p.Balance != 0 {
		t.Errorf("balance after failed AddDebt = %d, want 0", p.Balance)
	}
	debts, _ := svc.GetDebts(ctx)
	if len(debts) != 0 {
		t.Errorf("history after failed AddDebt has %d records, want 0", len(debts))
	}
}

// The no-session scenario: a buy-in and a payment both move balance and net
// winnings immediately. Positive-amount payments are net-eligible.
func TestProjectionWithoutSession(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 2: "bob", 9: "bank"})

	if _, err := svc.AddDebt(ctx, KindBuyin, 9, 1, 5000); err != nil {
		t.Fatalf("AddDebt buyin: %v", err)
	}
	a, _ := svc.GetPlayer(ctx, 1)
	bank, _ := svc.GetPlayer(ctx, 9)
	if a.Balance != -5000 || a.NetWinnings != -5000 {
		t.Errorf("alice after buyin = %+v, want balance -5000 net -5000", a)
	}
	if bank.Balance != 5000 || bank.NetWinnings != 5000 {
		t.Errorf("bank after buyin = %+v, want balance 5000 net 5000", bank)
	}

	if _, err := svc.AddDebt(ctx, KindPayment, 1, 2, 2000); err != nil {
		t.Fatalf("AddDebt payment: %v", err)
	}
	a, _ = svc.GetPlayer(ctx, 1)
	b, _ := svc.GetPlayer(ctx, 2)
	if a.Balance != -3000 || a.NetWinnings != -3000 {
		t.Errorf("alice after payment = %+v, want balance -3000 net -3000", a)
	}
	if b.Balance != -2000 || b.NetWinnings != -2000 {
		t.Errorf("bob after payment = %+v, want balance -2000 net -2000", b)
	}
	assertZeroSum(t, svc)
}

// A buy-in during an active session moves balance immediately but defers
// net winnings until the session ends.
func TestSessionGating(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 3: "carol"})

	if err := svc.StartSession(ctx, 3); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := svc.AddDebt(ctx, KindBuyin, 3, 1, 3000); err != nil {
		t.Fatalf("AddDebt: %v", err)
	}

	a, _ := svc.GetPlayer(ctx, 1)
	if a.Balance != -3000 {
		t.Errorf("balance during session = %d, want -3000", a.Balance)
	}
	if a.NetWinnings != 0 {
		t.Errorf("net during session = %d, want 0 (deferred)", a.NetWinnings)
	}

	if err := svc.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	a, _ = svc.GetPlayer(ctx, 1)
	c, _ := svc.GetPlayer(ctx, 3)
	if a.NetWinnings != -3000 {
		t.Errorf("net after session end = %d, want -3000", a.NetWinnings)
	}
	if c.NetWinnings != 3000 {
		t.Errorf("bank net after session end = %d, want 3000", c.NetWinnings)
	}
	assertZeroSum(t, svc)
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{3: "carol"})

	if err := svc.EndSession(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("EndSession without session = %v, want ErrNoSession", err)
	}
	if err := svc.StartSession(ctx, 42); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("StartSession with unknown bank = %v, want ErrPlayerNotFound", err)
	}
	if err := svc.StartSession(ctx, 3); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := svc.StartSession(ctx, 3); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second StartSession = %v, want ErrSessionActive", err)
	}

	sess, err := svc.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !sess.Active || sess.BankID != 3 || sess.StartTime.IsZero() {
		t.Errorf("session = %+v, want active with bank 3", sess)
	}

	if err := svc.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	sess, _ = svc.GetSession(ctx)
	if sess.Active {
		t.Errorf("session still active after end")
	}
}

func TestRebuildIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 2: "bob", 9: "bank"})

	svc.AddDebt(ctx, KindBuyin, 9, 1, 5000)
	svc.AddDebt(ctx, KindBuyin, 9, 2, 3000)
	svc.AddDebt(ctx, KindCashout, 1, 9, 6500)
	svc.AddDebt(ctx, KindPayment, 2, 1, -400)

	if err := svc.RefreshBalances(ctx); err != nil {
		t.Fatalf("RefreshBalances: %v", err)
	}
	first, _ := svc.GetPlayers(ctx)
	if err := svc.RefreshBalances(ctx); err != nil {
		t.Fatalf("second RefreshBalances: %v", err)
	}
	second, _ := svc.GetPlayers(ctx)

	if len(first) != len(second) {
		t.Fatalf("player count changed across rebuilds: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("player %d differs across rebuilds: %+v vs %+v", first[i].ID, first[i], second[i])
		}
	}
	assertZeroSum(t, svc)
}

// For a history with one completed session the rebuild must reproduce the
// incremental projection exactly.
func TestIncrementalRebuildEquivalence(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 2: "bob", 9: "bank"})

	svc.AddDebt(ctx, KindBuyin, 9, 1, 5000)
	svc.AddDebt(ctx, KindPayment, 1, 2, 2000)
	svc.StartSession(ctx, 9)
	svc.AddDebt(ctx, KindBuyin, 9, 2, 3000)
	svc.AddDebt(ctx, KindPayment, 2, 1, -400)
	if err := svc.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	svc.AddDebt(ctx, KindPayment, 9, 1, 1500)

	incremental, _ := svc.GetPlayers(ctx)
	if err := svc.RefreshBalances(ctx); err != nil {
		t.Fatalf("RefreshBalances: %v", err)
	}
	rebuilt, _ := svc.GetPlayers(ctx)

	for i := range incremental {
		if incremental[i] != rebuilt[i] {
			t.Errorf("player %d: incremental %+v != rebuilt %+v",
				incremental[i].ID, incremental[i], rebuilt[i])
		}
	}
	assertZeroSum(t, svc)
}

func TestNettingSymmetry(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 2: "bob", 9: "bank"})

	svc.AddDebt(ctx, KindBuyin, 9, 1, 5000)
	svc.AddDebt(ctx, KindPayment, 1, 2, 2000)
	svc.AddDebt(ctx, KindPayment, 2, 1, -400)
	svc.AddDebt(ctx, KindCashout, 2, 9, 1200)

	ids := []int64{1, 2, 9}
	owedBy := make(map[int64]map[int64]int64)
	for _, id := range ids {
		owed, err := svc.Owed(ctx, id)
		if err != nil {
			t.Fatalf("Owed(%d): %v", id, err)
		}
		owedBy[id] = owed
	}
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			if owedBy[a][b] != -owedBy[b][a] {
				t.Errorf("owed(%d)[%d] = %d, owed(%d)[%d] = %d; want negations",
					a, b, owedBy[a][b], b, a, owedBy[b][a])
			}
		}
	}
}

func TestOwedDropsSettledAndSelf(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 2: "bob"})

	// Two records that cancel exactly, plus a degenerate self-debt.
	svc.AddDebt(ctx, KindBuyin, 2, 1, 5000)
	svc.AddDebt(ctx, KindPayment, 2, 1, -5000)
	svc.AddDebt(ctx, KindBuyin, 1, 1, 777)

	owed, err := svc.Owed(ctx, 1)
	if err != nil {
		t.Fatalf("Owed: %v", err)
	}
	if len(owed) != 0 {
		t.Errorf("owed = %v, want empty after exact cancellation", owed)
	}

	if _, err := svc.Owed(ctx, 42); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("Owed(unknown) = %v, want ErrPlayerNotFound", err)
	}
}

func TestOwedSessionScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 2: "bob", 9: "bank"})

	if _, err := svc.OwedSession(ctx, 1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("OwedSession without session = %v, want ErrNoSession", err)
	}

	// Pre-session history must be invisible to the session view.
	svc.AddDebt(ctx, KindBuyin, 9, 1, 9000)
	if err := svc.StartSession(ctx, 9); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	svc.AddDebt(ctx, KindBuyin, 9, 1, 3000)
	svc.AddDebt(ctx, KindPayment, 2, 1, -400) // negative: excluded from session view

	owed, err := svc.OwedSession(ctx, 1)
	if err != nil {
		t.Fatalf("OwedSession: %v", err)
	}
	if len(owed) != 1 || owed[9] != -3000 {
		t.Errorf("session owed = %v, want map[9:-3000]", owed)
	}

	full, _ := svc.Owed(ctx, 1)
	if full[9] != -12000 {
		t.Errorf("full owed[9] = %d, want -12000", full[9])
	}
}

func TestLeaderboardRanks(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 2: "bob", 3: "carol", 9: "bank"})

	// alice and bob tie at +2000, bank below, carol at the bottom.
	svc.AddDebt(ctx, KindCashout, 1, 3, 2000)
	svc.AddDebt(ctx, KindCashout, 2, 3, 2000)
	svc.AddDebt(ctx, KindBuyin, 9, 3, 1000)

	ranked, err := svc.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	want := []struct {
		id   int64
		rank int
	}{
		{1, 1}, // registration order breaks the tie
		{2, 1},
		{9, 2},
		{3, 3},
	}
	if len(ranked) != len(want) {
		t.Fatalf("leaderboard has %d rows, want %d", len(ranked), len(want))
	}
	for i, w := range want {
		if ranked[i].Player.ID != w.id || ranked[i].Rank != w.rank {
			t.Errorf("row %d = id %d rank %d, want id %d rank %d",
				i, ranked[i].Player.ID, ranked[i].Rank, w.id, w.rank)
		}
	}

	rank, err := svc.Rank(ctx, 9)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if rank != 2 {
		t.Errorf("Rank(9) = %d, want 2", rank)
	}
}

func TestRefreshDetectsUnregisteredPlayer(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice"})

	// Simulate partial-write corruption: a history record referencing an id
	// that was never registered.
	store.mu.Lock()
	store.debts = append(store.debts, Debt{
		Kind: KindBuyin, RecipientID: 1, PayerID: 42, Amount: 5000,
		Date: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC),
	})
	store.mu.Unlock()

	err := svc.RefreshBalances(ctx)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("RefreshBalances = %v, want ErrIntegrity", err)
	}
	// The failed rebuild must not have touched any aggregate.
	p, _ := svc.GetPlayer(ctx, 1)
	if p.Balance != 0 || p.NetWinnings != 0 {
		t.Errorf("player mutated by failed rebuild: %+v", p)
	}
}

func TestRebuildDuringActiveSessionDefersNet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addPlayers(t, svc, map[int64]string{1: "alice", 9: "bank"})

	svc.AddDebt(ctx, KindBuyin, 9, 1, 1000)
	svc.StartSession(ctx, 9)
	svc.AddDebt(ctx, KindBuyin, 9, 1, 3000)

	if err := svc.RefreshBalances(ctx); err != nil {
		t.Fatalf("RefreshBalances: %v", err)
	}
	a, _ := svc.GetPlayer(ctx, 1)
	if a.Balance != -4000 {
		t.Errorf("balance after mid-session rebuild = %d, want -4000", a.Balance)
	}
	if a.NetWinnings != -1000 {
		t.Errorf("net after mid-session rebuild = %d, want -1000 (session records deferred)", a.NetWinnings)
	}
}
