package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the slice of a pgx pool the Loader needs. Narrowed to an
// interface so tests can observe schema-creation and insert calls without a
// database.
type Store interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrEmptyTenant is returned when Load is called without a tenant id.
var ErrEmptyTenant = errors.New("tenant id is required")

// Loader persists canonical rows into per-domain tables, each row tagged
// with the owning tenant.
type Loader struct {
	store Store
}

// NewLoader returns a Loader writing through the given store.
func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// ddl holds the idempotent schema-creation statement per data type. The
// loader issues it on every non-empty call.
var ddl = map[DataType]string{
	DataTypeAccounting: `CREATE TABLE IF NOT EXISTS acct_ledger (
		tenant_id text,
		date date,
		revenue numeric,
		expenses numeric,
		cash_in numeric,
		cash_out numeric
	)`,
	DataTypeSales: `CREATE TABLE IF NOT EXISTS sales_txn (
		tenant_id text,
		date date,
		order_id text,
		customer_id text,
		amount numeric,
		currency text
	)`,
	DataTypeMarketing: `CREATE TABLE IF NOT EXISTS mkt_perf (
		tenant_id text,
		date date,
		channel text,
		campaign text,
		spend numeric,
		impressions int,
		clicks int
	)`,
}

// Load writes rows for one tenant in a single transaction and returns the
// number of rows written. Preconditions (non-empty tenant, known data type)
// fail before any store call. A failure mid-insert rolls the whole set back;
// no partial set is ever committed.
func (l *Loader) Load(ctx context.Context, rows []CanonicalRow, dt DataType, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, ErrEmptyTenant
	}
	create, ok := ddl[dt]
	if !ok {
		return 0, fmt.Errorf("unknown data type: %q", dt)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if _, err := l.store.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("ensure table for %s: %w", dt, err)
	}

	batch := &pgx.Batch{}
	for i, row := range rows {
		if err := queueInsert(batch, row, dt, tenantID); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("insert into %s: %w", dt, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

func queueInsert(batch *pgx.Batch, row CanonicalRow, dt DataType, tenantID string) error {
	switch dt {
	case DataTypeAccounting:
		r := row.Accounting
		if r == nil {
			return fmt.Errorf("not an accounting row")
		}
		batch.Queue(
			`INSERT INTO acct_ledger (tenant_id, date, revenue, expenses, cash_in, cash_out)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			tenantID, r.Date, r.Revenue, r.Expenses, r.CashIn, r.CashOut,
		)
	case DataTypeSales:
		r := row.Sales
		if r == nil {
			return fmt.Errorf("not a sales row")
		}
		batch.Queue(
			`INSERT INTO sales_txn (tenant_id, date, order_id, customer_id, amount, currency)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			tenantID, r.Date, r.OrderID, r.CustomerID, r.Amount, r.Currency,
		)
	case DataTypeMarketing:
		r := row.Marketing
		if r == nil {
			return fmt.Errorf("not a marketing row")
		}
		batch.Queue(
			`INSERT INTO mkt_perf (tenant_id, date, channel, campaign, spend, impressions, clicks)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			tenantID, r.Date, r.Channel, r.Campaign, r.Spend, r.Impressions, r.Clicks,
		)
	}
	return nil
}
