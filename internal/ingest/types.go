package ingest

import "fmt"

// DataType identifies which business domain an upload belongs to.
// It selects both the canonical row shape and the destination table.
type DataType string

const (
	DataTypeAccounting DataType = "accounting"
	DataTypeSales      DataType = "sales"
	DataTypeMarketing  DataType = "marketing"
)

// ParseDataType validates a client-supplied data type string.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case DataTypeAccounting, DataTypeSales, DataTypeMarketing:
		return DataType(s), nil
	}
	return "", fmt.Errorf("unknown data type: %q", s)
}

// RawRow is one loosely-typed record as produced by a format decoder.
// Keys come from the source file's header row (or JSON object keys); values
// are whatever the decoder produced (string for CSV/XLSX, any JSON scalar
// for JSON).
type RawRow map[string]any

// CanonicalRow is one normalized record for a specific data type. Exactly
// one of Accounting, Sales or Marketing is set, matching the DataType the
// row was normalized for.
type CanonicalRow struct {
	Accounting *AccountingRow
	Sales      *SalesRow
	Marketing  *MarketingRow
}

// AccountingRow is one ledger record. Date is nil when the source value did
// not parse; numeric fields are 0 when the source value was missing or not
// numeric.
type AccountingRow struct {
	Date     *string `json:"date"`
	Revenue  float64 `json:"revenue"`
	Expenses float64 `json:"expenses"`
	CashIn   float64 `json:"cash_in"`
	CashOut  float64 `json:"cash_out"`
}

// SalesRow is one sales transaction. Currency defaults to "USD" when the
// source column is absent.
type SalesRow struct {
	Date       *string `json:"date"`
	OrderID    string  `json:"order_id"`
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

// MarketingRow is one campaign performance record.
type MarketingRow struct {
	Date        *string `json:"date"`
	Channel     string  `json:"channel"`
	Campaign    string  `json:"campaign"`
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
}
