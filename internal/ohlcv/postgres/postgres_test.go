package postgres

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/timeframe"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return Open(sqlxDB, DefaultConfig()), mock
}

func TestGetOHLCVReturnsRowsInOrder(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"symbol", "ts_open", "ts_close", "open", "high", "low", "close", "volume"}).
		AddRow("BTCUSDT", int64(1000), int64(2000), 100.0, 101.0, 99.0, 100.5, 10.0).
		AddRow("BTCUSDT", int64(2000), int64(3000), 100.5, 102.0, 100.0, 101.5, 12.0)
	mock.ExpectQuery("SELECT symbol, ts_open").WillReturnRows(rows)

	bars, err := store.GetOHLCV(context.Background(), "BTCUSDT", timeframe.TF1m, 1000, 3000)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1000), bars[0].TSOpen)
	assert.Equal(t, 101.5, bars[1].Close)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOHLCVWrapsQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT symbol, ts_open").WillReturnError(assert.AnError)

	_, err := store.GetOHLCV(context.Background(), "BTCUSDT", timeframe.TF1m, 1000, 3000)
	assert.Error(t, err)
}

func TestGetFundingReturnsEvents(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"ts", "rate", "interval_hours"}).
		AddRow(int64(1000), 0.0001, 8)
	mock.ExpectQuery("SELECT ts, rate").WillReturnRows(rows)

	events, err := store.GetFunding(context.Background(), "BTCUSDT", 0, 5000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 0.0001, events[0].Rate)
	assert.Equal(t, 8, events[0].IntervalHours)
}
