package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tmcewan/cashgamebot/internal/ledger"
)

// CreatePlayer registers a player. Returns ledger.ErrPlayerExists if the id
// is already registered.
func (db *DB) CreatePlayer(ctx context.Context, id int64, name string) error {
	ct, err := db.pool.Exec(ctx,
		`INSERT INTO player_data (player_id, player_name) VALUES ($1, $2)
		 ON CONFLICT (player_id) DO NOTHING`,
		id, name,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrPlayerExists
	}
	return nil
}

func (db *DB) Player(ctx context.Context, id int64) (*ledger.Player, error) {
	var p ledger.Player
	err := db.pool.QueryRow(ctx,
		`SELECT player_id, player_name, balance, net_gain FROM player_data WHERE player_id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Balance, &p.NetWinnings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Players returns all players in registration order.
func (db *DB) Players(ctx context.Context) ([]ledger.Player, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT player_id, player_name, balance, net_gain
		 FROM player_data ORDER BY created_at, player_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Player
	for rows.Next() {
		var p ledger.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Balance, &p.NetWinnings); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Debts returns the full history, oldest first.
func (db *DB) Debts(ctx context.Context) ([]ledger.Debt, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT debt_type, recipient_id, payer_id, amount, date FROM debt_history ORDER BY date`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Debt
	for rows.Next() {
		var d ledger.Debt
		if err := rows.Scan(&d.Kind, &d.RecipientID, &d.PayerID, &d.Amount, &d.Date); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ApplyDebt appends the record and applies its balance and net deltas in a
// single transaction. The session row is locked first so eligibility cannot
// race a concurrent session transition; either all writes commit or none.
func (db *DB) ApplyDebt(ctx context.Context, d ledger.Debt) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sess, err := scanSession(tx.QueryRow(ctx,
		`SELECT is_session, session_start, bank_id FROM session WHERE singleton FOR UPDATE`,
	))
	if err != nil {
		return err
	}
	eligible := ledger.NetEligible(d.Amount, sess)

	if _, err := tx.Exec(ctx,
		`INSERT INTO debt_history (debt_type, recipient_id, payer_id, amount, date)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.Kind, d.RecipientID, d.PayerID, d.Amount, d.Date,
	); err != nil {
		return err
	}

	netDelta := int64(0)
	if eligible {
		netDelta = d.Amount
	}
	if err := adjustPlayer(ctx, tx, d.RecipientID, d.Amount, netDelta); err != nil {
		return err
	}
	if err := adjustPlayer(ctx, tx, d.PayerID, -d.Amount, -netDelta); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func adjustPlayer(ctx context.Context, tx pgx.Tx, id, balanceDelta, netDelta int64) error {
	ct, err := tx.Exec(ctx,
		`UPDATE player_data SET balance = balance + $2, net_gain = net_gain + $3
		 WHERE player_id = $1`,
		id, balanceDelta, netDelta,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("player %d: %w", id, ledger.ErrPlayerNotFound)
	}
	return nil
}

// SetAggregates replaces every player's aggregates with the supplied
// projection in one transaction. Players absent from totals are zeroed.
func (db *DB) SetAggregates(ctx context.Context, totals map[int64]ledger.Aggregates) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE player_data SET balance = 0, net_gain = 0`); err != nil {
		return err
	}
	for id, a := range totals {
		ct, err := tx.Exec(ctx,
			`UPDATE player_data SET balance = $2, net_gain = $3 WHERE player_id = $1`,
			id, a.Balance, a.NetWinnings,
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("player %d missing during rebuild: %w", id, ledger.ErrIntegrity)
		}
	}
	return tx.Commit(ctx)
}

func (db *DB) Session(ctx context.Context) (ledger.Session, error) {
	return scanSession(db.pool.QueryRow(ctx,
		`SELECT is_session, session_start, bank_id FROM session WHERE singleton`,
	))
}

func scanSession(row pgx.Row) (ledger.Session, error) {
	var sess ledger.Session
	var start *time.Time
	var bank *int64
	if err := row.Scan(&sess.Active, &start, &bank); err != nil {
		return ledger.Session{}, err
	}
	if start != nil {
		sess.StartTime = *start
	}
	if bank != nil {
		sess.BankID = *bank
	}
	return sess, nil
}

// StartSession opens the session. The conditional update is the guard: two
// concurrent starts cannot both see is_session = FALSE.
func (db *DB) StartSession(ctx context.Context, bankID int64, start time.Time) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE session SET is_session = TRUE, session_start = $1, bank_id = $2
		 WHERE singleton AND is_session = FALSE`,
		start, bankID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrSessionActive
	}
	return nil
}

func (db *DB) EndSession(ctx context.Context) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE session SET is_session = FALSE WHERE singleton AND is_session = TRUE`,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrNoSession
	}
	return nil
}
