package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// The mock driver needs a placeholder style for named-query rewriting.
	sqlx.BindDriver("sqlmock", sqlx.DOLLAR)
}

func newMockRecorder(t *testing.T) (*Recorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	rec := &Recorder{db: sqlx.NewDb(db, "sqlmock")}
	t.Cleanup(func() { rec.Close() })
	return rec, mock
}

func TestRecorder_RecordPass(t *testing.T) {
	rec, mock := newMockRecorder(t)

	rows := []PassResult{
		{
			PassNumber:    1,
			Address:       "0x00000000000000000000000000000000000000aa",
			TxHash:        "0xdeadbeef",
			ReceiptStatus: 1,
			RecordedAt:    time.Now(),
		},
		{
			PassNumber:    1,
			Address:       "0x00000000000000000000000000000000000000bb",
			Skipped:       true,
			SkipReason:    "nothing to claim",
			ReceiptStatus: -1,
			RecordedAt:    time.Now(),
		},
	}

	mock.ExpectExec("INSERT INTO pass_results").
		WillReturnResult(sqlmock.NewResult(0, int64(len(rows))))

	require.NoError(t, rec.RecordPass(context.Background(), rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_RecordPassEmpty(t *testing.T) {
	rec, mock := newMockRecorder(t)

	// No rows means no round trip at all.
	require.NoError(t, rec.RecordPass(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_RecordPassError(t *testing.T) {
	rec, mock := newMockRecorder(t)

	mock.ExpectExec("INSERT INTO pass_results").
		WillReturnError(assert.AnError)

	err := rec.RecordPass(context.Background(), []PassResult{{PassNumber: 1, Address: "0x00"}})
	assert.ErrorIs(t, err, assert.AnError)
}
