package store

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Recorder persists per-pass account outcomes so a campaign can be audited
// after the process exits. It is an observer: the core never reads back from
// it and runs fine without it.
type Recorder struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pass_results (
	id             BIGSERIAL PRIMARY KEY,
	pass_number    BIGINT      NOT NULL,
	address        TEXT        NOT NULL,
	skipped        BOOLEAN     NOT NULL,
	skip_reason    TEXT        NOT NULL DEFAULT '',
	tx_hash        TEXT        NOT NULL DEFAULT '',
	receipt_status INT         NOT NULL DEFAULT -1,
	error_kind     TEXT        NOT NULL DEFAULT '',
	error_text     TEXT        NOT NULL DEFAULT '',
	recorded_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pass_results_pass ON pass_results (pass_number);
CREATE INDEX IF NOT EXISTS idx_pass_results_address ON pass_results (address);
`

// NewRecorder connects to Postgres and ensures the results table exists.
func NewRecorder(databaseURL string) (*Recorder, error) {
	db, err := sqlx.Connect("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close releases the database connection.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// PassResult is one account's outcome in one pass.
type PassResult struct {
	PassNumber    int64     `db:"pass_number"`
	Address       string    `db:"address"`
	Skipped       bool      `db:"skipped"`
	SkipReason    string    `db:"skip_reason"`
	TxHash        string    `db:"tx_hash"`
	ReceiptStatus int       `db:"receipt_status"`
	ErrorKind     string    `db:"error_kind"`
	ErrorText     string    `db:"error_text"`
	RecordedAt    time.Time `db:"recorded_at"`
}

// RecordPass inserts the outcomes of one pass.
func (r *Recorder) RecordPass(ctx context.Context, rows []PassResult) error {
	if len(rows) == 0 {
		return nil
	}
	query := `
		INSERT INTO pass_results
		(pass_number, address, skipped, skip_reason, tx_hash, receipt_status, error_kind, error_text, recorded_at)
		VALUES
		(:pass_number, :address, :skipped, :skip_reason, :tx_hash, :receipt_status, :error_kind, :error_text, :recorded_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, rows)
	return err
}
