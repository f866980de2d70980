package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Events returns a run's event log in execution order.
func (s *Store) Events(ctx context.Context, runID string) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, time, kind, vessel, company, trade_key, port
		FROM events
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			row                          EventRow
			vessel, company, trade, port sql.NullString
		)
		if err := rows.Scan(&row.Seq, &row.RunID, &row.Time, &row.Kind, &vessel, &company, &trade, &port); err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		row.Vessel = vessel.String
		row.Company = company.String
		row.TradeKey = trade.String
		row.Port = port.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}

// Contracts returns a run's awarded contracts in auction order.
func (s *Store) Contracts(ctx context.Context, runID string) ([]ContractRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, auction_time, company, trade_key, payment, fulfilled
		FROM contracts
		WHERE run_id = ?
		ORDER BY auction_time, company, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read contracts: %w", err)
	}
	defer rows.Close()

	var out []ContractRow
	for rows.Next() {
		var row ContractRow
		if err := rows.Scan(&row.ID, &row.RunID, &row.AuctionTime, &row.Company, &row.TradeKey, &row.Payment, &row.Fulfilled); err != nil {
			return nil, fmt.Errorf("read contracts: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read contracts: %w", err)
	}
	return out, nil
}

// Unallocated returns the trade keys a run left unallocated, in auction
// order.
func (s *Store) Unallocated(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_key FROM unallocated_trades
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read unallocated trades: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("read unallocated trades: %w", err)
		}
		out = append(out, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read unallocated trades: %w", err)
	}
	return out, nil
}
