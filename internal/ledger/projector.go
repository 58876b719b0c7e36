package ledger

// Every debt record raises the recipient's balance by its amount and lowers
// the payer's by the same, so the sum of all balances stays exactly zero.
// Net winnings follow the same deltas but only for eligible records: the
// leaderboard must not move while a session is still being played.

// NetEligible reports whether a debt applied live moves net winnings:
// non-negative amounts recorded outside any session count immediately,
// everything else is deferred until the session closes and the rebuild
// folds it in.
func NetEligible(amount int64, sess Session) bool {
	return amount >= 0 && !sess.Active
}

// netEligibleAt is the rebuild-time rule. The session table keeps no
// history, only the current singleton, so a record is deferred exactly when
// a session is active now and the record falls inside its window. Any
// record outside that window belongs to a session that has since closed
// (or to no session at all) and counts.
func netEligibleAt(d Debt, sess Session) bool {
	if d.Amount < 0 {
		return false
	}
	if sess.Active && !d.Date.Before(sess.StartTime) {
		return false
	}
	return true
}

// Aggregates holds the projected totals for one player.
type Aggregates struct {
	Balance     int64
	NetWinnings int64
}

// Replay folds the full debt history into per-player aggregates from
// scratch, applying the same update rules as the incremental path. Ids that
// appear in the history but were never registered still accumulate, so the
// caller can detect them as corruption. A record whose recipient and payer
// coincide cancels itself out.
func Replay(debts []Debt, sess Session) map[int64]Aggregates {
	totals := make(map[int64]Aggregates)
	for _, d := range debts {
		eligible := netEligibleAt(d, sess)

		r := totals[d.RecipientID]
		r.Balance += d.Amount
		if eligible {
			r.NetWinnings += d.Amount
		}
		totals[d.RecipientID] = r

		p := totals[d.PayerID]
		p.Balance -= d.Amount
		if eligible {
			p.NetWinnings -= d.Amount
		}
		totals[d.PayerID] = p
	}
	return totals
}
