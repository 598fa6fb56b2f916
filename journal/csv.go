package journal

import (
	"encoding/csv"
	"os"
	"strconv"
)

// CSVLedger appends closed trades to a flat delimited file with no
// header row: timestamp, symbol, direction, entry, exit, profit/loss.
// Prices and P/L are written with 8 decimal places. The file is opened
// in append mode so restarts keep extending the same log.
type CSVLedger struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVLedger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &CSVLedger{w: csv.NewWriter(f), f: f}, nil
}

func (l *CSVLedger) Append(t TradeRecord) error {
	err := l.w.Write([]string{
		t.Time.Format("2006-01-02 15:04:05"),
		t.Symbol,
		t.Direction.String(),
		f8(t.EntryPrice),
		f8(t.ExitPrice),
		f8(t.ProfitLoss),
	})
	if err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *CSVLedger) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return err
	}
	return l.f.Close()
}

func f8(x float64) string {
	return strconv.FormatFloat(x, 'f', 8, 64)
}
