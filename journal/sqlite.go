package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteLedger struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Append(t TradeRecord) error {
	_, err := l.db.Exec(`
		INSERT INTO trades
		(trade_id, time, symbol, direction, entry_price, exit_price, volume, profit_loss, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Time, t.Symbol, t.Direction.String(),
		t.EntryPrice, t.ExitPrice, t.Volume, t.ProfitLoss, t.Reason,
	)
	return err
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
