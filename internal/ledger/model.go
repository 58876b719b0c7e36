package ledger

import "time"

// Debt kinds recorded by the command layer. The projector treats the kind as
// an opaque label; only the amount sign and the session state decide whether
// a record moves net winnings.
const (
	KindBuyin   = "buyin"
	KindCashout = "cashout"
	KindPayment = "payment"
)

// Player is a registered participant together with its derived aggregates.
// Balance and NetWinnings are owned by the projector and are always
// recomputable from the debt history; nothing else may write them.
type Player struct {
	ID          int64  `json:"player_id"`
	Name        string `json:"player_name"`
	Balance     int64  `json:"balance"`
	NetWinnings int64  `json:"net_gain"`
}

// Debt is one immutable ledger entry moving Amount (minor currency units)
// from the payer to the recipient. A negative amount is equivalent to
// swapping the two parties. Records are never updated or deleted;
// corrections are compensating records.
type Debt struct {
	Kind        string    `json:"debt_type"`
	RecipientID int64     `json:"recipient_id"`
	PayerID     int64     `json:"payer_id"`
	Amount      int64     `json:"amount"`
	Date        time.Time `json:"date"`
}

// Session is the process-wide singleton that gates net-winnings aggregation.
// StartTime and BankID are meaningful only while Active.
type Session struct {
	Active    bool      `json:"is_session"`
	StartTime time.Time `json:"session_start"`
	BankID    int64     `json:"bank_id"`
}

// Ranked pairs a player with its leaderboard rank. Players with equal net
// winnings share a rank.
type Ranked struct {
	Rank   int    `json:"rank"`
	Player Player `json:"player"`
}
