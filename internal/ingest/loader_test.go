package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// spyStore records every call so tests can assert that preconditions fail
// before any database work is issued.
type spyStore struct {
	execs   []string
	begun   int
	tx      *spyTx
	execErr error
}

func (s *spyStore) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, sql)
	return pgconn.CommandTag{}, s.execErr
}

func (s *spyStore) Begin(context.Context) (pgx.Tx, error) {
	s.begun++
	return s.tx, nil
}

// spyTx embeds pgx.Tx for interface satisfaction; only the methods the
// loader touches are implemented.
type spyTx struct {
	pgx.Tx
	batch      *pgx.Batch
	insertErr  error
	committed  bool
	rolledBack bool
}

func (t *spyTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	t.batch = b
	return &spyBatchResults{err: t.insertErr}
}

func (t *spyTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *spyTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

type spyBatchResults struct{ err error }

func (r *spyBatchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, r.err }
func (r *spyBatchResults) Query() (pgx.Rows, error)         { return nil, errors.New("not implemented") }
func (r *spyBatchResults) QueryRow() pgx.Row                { return nil }
func (r *spyBatchResults) Close() error                     { return nil }

func accountingRows(n int) []CanonicalRow {
	rows := make([]CanonicalRow, n)
	for i := range rows {
		rows[i] = CanonicalRow{Accounting: &AccountingRow{Revenue: float64(i)}}
	}
	return rows
}

func TestLoadEmptyTenantFailsBeforeAnyStoreCall(t *testing.T) {
	store := &spyStore{tx: &spyTx{}}
	_, err := NewLoader(store).Load(context.Background(), accountingRows(1), DataTypeAccounting, "")
	if !errors.Is(err, ErrEmptyTenant) {
		t.Fatalf("expected ErrEmptyTenant, got %v", err)
	}
	if len(store.execs) != 0 || store.begun != 0 {
		t.Fatalf("store must not be touched: execs=%d begun=%d", len(store.execs), store.begun)
	}
}

func TestLoadUnknownDataTypeFailsBeforeAnyStoreCall(t *testing.T) {
	store := &spyStore{tx: &spyTx{}}
	_, err := NewLoader(store).Load(context.Background(), accountingRows(1), DataType("finance"), "t1")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.execs) != 0 || store.begun != 0 {
		t.Fatalf("store must not be touched: execs=%d begun=%d", len(store.execs), store.begun)
	}
}

func TestLoadEmptyRowsSkipsTableCreation(t *testing.T) {
	store := &spyStore{tx: &spyTx{}}
	n, err := NewLoader(store).Load(context.Background(), nil, DataTypeAccounting, "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows, got %d", n)
	}
	if len(store.execs) != 0 {
		t.Fatalf("no schema-creation call expected, got %v", store.execs)
	}
}

func TestLoadWritesBatchInOneTransaction(t *testing.T) {
	tx := &spyTx{}
	store := &spyStore{tx: tx}
	n, err := NewLoader(store).Load(context.Background(), accountingRows(3), DataTypeAccounting, "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
	if len(store.execs) != 1 || !strings.Contains(store.execs[0], "acct_ledger") {
		t.Fatalf("expected one acct_ledger schema-creation call, got %v", store.execs)
	}
	if store.begun != 1 {
		t.Fatalf("expected one transaction, got %d", store.begun)
	}
	if tx.batch == nil || tx.batch.Len() != 3 {
		t.Fatalf("expected 3 queued inserts, got %v", tx.batch)
	}
	if !tx.committed {
		t.Fatal("transaction was not committed")
	}
}

func TestLoadInsertFailureRollsBack(t *testing.T) {
	tx := &spyTx{insertErr: errors.New("constraint violation")}
	store := &spyStore{tx: tx}
	_, err := NewLoader(store).Load(context.Background(), accountingRows(2), DataTypeAccounting, "t1")
	if err == nil {
		t.Fatal("expected insert error")
	}
	if tx.committed {
		t.Fatal("failed batch must not commit")
	}
	if !tx.rolledBack {
		t.Fatal("failed batch must roll back")
	}
}

func TestLoadRejectsMismatchedVariant(t *testing.T) {
	store := &spyStore{tx: &spyTx{}}
	rows := []CanonicalRow{{Sales: &SalesRow{}}}
	_, err := NewLoader(store).Load(context.Background(), rows, DataTypeAccounting, "t1")
	if err == nil {
		t.Fatal("expected variant mismatch error")
	}
	if store.begun != 0 {
		t.Fatal("mismatch must fail before the transaction starts")
	}
}
