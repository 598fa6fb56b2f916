package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tradekit/zonebot/broker"
)

// GetTrade returns a single trade record by ID.
func (l *SQLiteLedger) GetTrade(tradeID string) (TradeRecord, error) {
	row := l.db.QueryRow(`
		SELECT trade_id, time, symbol, direction, entry_price, exit_price, volume, profit_loss, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close time is within [start, end).
func (l *SQLiteLedger) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := l.db.Query(`
		SELECT trade_id, time, symbol, direction, entry_price, exit_price, volume, profit_loss, reason
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTrade(scan func(dest ...any) error) (TradeRecord, error) {
	var rec TradeRecord
	var dir string

	err := scan(
		&rec.TradeID,
		&rec.Time,
		&rec.Symbol,
		&dir,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.Volume,
		&rec.ProfitLoss,
		&rec.Reason,
	)
	if err != nil {
		return TradeRecord{}, err
	}

	rec.Direction, err = broker.ParseDirection(dir)
	if err != nil {
		return TradeRecord{}, err
	}
	return rec, nil
}
