package store

import (
	"context"
	"database/sql"
	"fmt"
)

// EventRow is one executed simulation event. Seq is assigned by the store
// in write order.
type EventRow struct {
	Seq      int64
	RunID    string
	Time     float64
	Kind     string
	Vessel   string
	Company  string
	TradeKey string
	Port     string
}

// ContractRow is one awarded contract.
type ContractRow struct {
	ID          string
	RunID       string
	AuctionTime float64
	Company     string
	TradeKey    string
	Payment     float64
	Fulfilled   bool
}

// WriteEvent appends an executed event to the run log.
func (s *Store) WriteEvent(ctx context.Context, row EventRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (run_id, time, kind, vessel, company, trade_key, port)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		row.RunID,
		row.Time,
		row.Kind,
		nullable(row.Vessel),
		nullable(row.Company),
		nullable(row.TradeKey),
		nullable(row.Port),
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteContract records an awarded contract. Duplicate contract IDs are
// silently ignored, so replaying an allocation is idempotent.
func (s *Store) WriteContract(ctx context.Context, row ContractRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, run_id, auction_time, company, trade_key, payment, fulfilled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		row.ID,
		row.RunID,
		row.AuctionTime,
		row.Company,
		row.TradeKey,
		row.Payment,
		row.Fulfilled,
	)
	if err != nil {
		return fmt.Errorf("write contract: %w", err)
	}
	return nil
}

// MarkFulfilled flags a contract as delivered.
func (s *Store) MarkFulfilled(ctx context.Context, contractID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE contracts SET fulfilled = 1 WHERE id = ?
	`, contractID)
	if err != nil {
		return fmt.Errorf("mark fulfilled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark fulfilled: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark fulfilled: contract %s not found", contractID)
	}
	return nil
}

// WriteUnallocated records a trade that went through an auction without a
// winner.
func (s *Store) WriteUnallocated(ctx context.Context, runID string, auctionTime float64, tradeKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unallocated_trades (run_id, auction_time, trade_key)
		VALUES (?, ?, ?)
	`, runID, auctionTime, tradeKey)
	if err != nil {
		return fmt.Errorf("write unallocated trade: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
