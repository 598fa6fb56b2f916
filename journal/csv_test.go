package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tradekit/zonebot/broker"
)

func TestCSVLedgerAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")

	l, err := NewCSV(path)
	assert.NoError(t, err)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err = l.Append(TradeRecord{
		TradeID:    "T1",
		Time:       ts,
		Symbol:     "BTCUSD",
		Direction:  broker.Buy,
		EntryPrice: 90.5,
		ExitPrice:  95,
		Volume:     1,
		ProfitLoss: 4.5,
		Reason:     "TakeProfit",
	})
	assert.NoError(t, err)
	assert.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	reader := csv.NewReader(strings.NewReader(string(data)))
	row, err := reader.Read()
	assert.NoError(t, err)

	// No header row: the first line is the record itself.
	want := []string{
		"2024-01-02 03:04:05",
		"BTCUSD",
		"BUY",
		"90.50000000",
		"95.00000000",
		"4.50000000",
	}
	assert.Equal(t, want, row)
}

func TestCSVLedgerAppendsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := TradeRecord{
		Time: ts, Symbol: "BTCUSD", Direction: broker.Sell,
		EntryPrice: 100, ExitPrice: 89, Volume: 1, ProfitLoss: 11,
	}

	l, err := NewCSV(path)
	assert.NoError(t, err)
	assert.NoError(t, l.Append(rec))
	assert.NoError(t, l.Close())

	// Reopening must not truncate what was written before.
	l, err = NewCSV(path)
	assert.NoError(t, err)
	assert.NoError(t, l.Append(rec))
	assert.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
}
