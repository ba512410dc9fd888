package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Normalize maps raw decoder rows into canonical rows for the given data
// type. It is pure: output order equals input order and normalizing the same
// input twice yields identical results. Unknown data types normalize to nil;
// callers validate the type before decoding anything.
func Normalize(rows []RawRow, dt DataType) []CanonicalRow {
	out := make([]CanonicalRow, 0, len(rows))
	switch dt {
	case DataTypeAccounting:
		for _, r := range rows {
			out = append(out, CanonicalRow{Accounting: &AccountingRow{
				Date:     isoDate(r.first("date")),
				Revenue:  num(r.first("revenue")),
				Expenses: num(r.first("expenses")),
				CashIn:   num(r.first("cash_in", "cashIn")),
				CashOut:  num(r.first("cash_out", "cashOut")),
			}})
		}
	case DataTypeSales:
		for _, r := range rows {
			out = append(out, CanonicalRow{Sales: &SalesRow{
				Date:       isoDate(r.first("date")),
				OrderID:    str(r.first("order_id", "orderId"), ""),
				CustomerID: str(r.first("customer_id", "customerId"), ""),
				Amount:     num(r.first("amount")),
				Currency:   str(r.first("currency"), "USD"),
			}})
		}
	case DataTypeMarketing:
		for _, r := range rows {
			out = append(out, CanonicalRow{Marketing: &MarketingRow{
				Date:        isoDate(r.first("date")),
				Channel:     str(r.first("channel"), ""),
				Campaign:    str(r.first("campaign"), ""),
				Spend:       num(r.first("spend")),
				Impressions: integer(r.first("impressions")),
				Clicks:      integer(r.first("clicks")),
			}})
		}
	default:
		return nil
	}
	return out
}

// first returns the value of the first present key. Alternate spellings of
// the same column (cash_in vs cashIn) are resolved this way.
func (r RawRow) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return v
		}
	}
	return nil
}

// str stringifies v, falling back to def when v is missing.
func str(v any, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// num coerces v to a finite float64, 0 on anything non-numeric.
func num(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// integer coerces v to an int64 via a base-10 parse, truncating fractional
// values, 0 on anything non-numeric.
func integer(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	}
	return 0
}

// dateLayouts are tried in order when coercing a raw date value.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// isoDate coerces v to a YYYY-MM-DD string, nil when the value does not
// parse as a date. It never panics on garbage input.
func isoDate(v any) *string {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t = parsed
				break
			}
		}
		if t.IsZero() {
			return nil
		}
	case float64:
		// JSON numbers are epoch milliseconds.
		t = time.UnixMilli(int64(val)).UTC()
	default:
		return nil
	}
	iso := t.Format("2006-01-02")
	return &iso
}
