package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Queryer is the read-only database slice the answerer needs.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Chart is a renderable chart payload sent over the stream.
type Chart struct {
	Type  string           `json:"type"`
	XKey  string           `json:"xKey"`
	YKeys []string         `json:"yKeys"`
	Data  []map[string]any `json:"data"`
	Title string           `json:"title,omitempty"`
}

// Answer is the heuristic result for one question.
type Answer struct {
	Text  string
	SQL   string
	Chart *Chart
}

// Answerer produces keyword-triggered answers by probing the tenant's
// tables and running fixed SQL templates. There is no language model here;
// a question either hits one of the known intents or gets a clarification
// prompt.
type Answerer struct {
	db Queryer
}

// NewAnswerer returns an Answerer reading through db.
func NewAnswerer(db Queryer) *Answerer {
	return &Answerer{db: db}
}

type intent int

const (
	intentUnknown intent = iota
	intentGrossMargin
	intentRevenueVsMarketing
	intentRepeatCustomers
)

func detectIntent(question string) intent {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "gross margin"):
		return intentGrossMargin
	case strings.Contains(q, "revenue") && (strings.Contains(q, "marketing") || strings.Contains(q, "ad")):
		return intentRevenueVsMarketing
	case strings.Contains(q, "repeat") && strings.Contains(q, "customer"):
		return intentRepeatCustomers
	}
	return intentUnknown
}

var (
	marginTablePattern = regexp.MustCompile(`margin|profit|kpi|metric`)
	metricTablePattern = regexp.MustCompile(`metric|kpi|dash`)
	orderTablePattern  = regexp.MustCompile(`order|purchase|sale`)
)

// pickTable returns the first table name matching the pattern, "" if none.
func pickTable(tables []string, re *regexp.Regexp) string {
	for _, t := range tables {
		if re.MatchString(t) {
			return t
		}
	}
	return ""
}

// Answer resolves the question to one of the known intents and executes its
// SQL template, if a candidate table exists.
func (a *Answerer) Answer(ctx context.Context, question string) (*Answer, error) {
	switch detectIntent(question) {
	case intentGrossMargin:
		return a.grossMargin(ctx)
	case intentRevenueVsMarketing:
		return a.revenueVsMarketing(ctx)
	case intentRepeatCustomers:
		return a.repeatCustomers(ctx)
	}
	return &Answer{Text: "I received your question. Please provide more details."}, nil
}

func (a *Answerer) listTables(ctx context.Context) ([]string, error) {
	rows, err := a.db.Query(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (a *Answerer) grossMargin(ctx context.Context) (*Answer, error) {
	tables, err := a.listTables(ctx)
	if err != nil {
		return nil, err
	}
	candidate := pickTable(tables, marginTablePattern)
	if candidate == "" {
		return &Answer{
			Text: "I could not find a table with revenue and cost to compute margin.",
			SQL:  "-- Define a materialized view with columns: period, revenue, cost to compute margin",
		}, nil
	}

	sql := fmt.Sprintf(`SELECT date_trunc('quarter', period) AS quarter,
		sum(revenue)::float8 AS revenue, sum(cost)::float8 AS cost,
		((sum(revenue)-sum(cost))/nullif(sum(revenue),0))::float8 AS gross_margin
		FROM %s GROUP BY 1 ORDER BY 1 DESC LIMIT 1`, candidate)

	rows, err := a.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("gross margin query: %w", err)
	}
	defer rows.Close()

	text := "I computed the latest quarterly gross margin."
	if rows.Next() {
		var quarter time.Time
		var revenue, cost, margin float64
		if err := rows.Scan(&quarter, &revenue, &cost, &margin); err != nil {
			return nil, err
		}
		text += fmt.Sprintf(" Gross margin for %s is %.1f%%.", quarter.Format("2006-01"), margin*100)
	} else {
		text += " No rows found."
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &Answer{Text: text, SQL: sql}, nil
}

func (a *Answerer) revenueVsMarketing(ctx context.Context) (*Answer, error) {
	tables, err := a.listTables(ctx)
	if err != nil {
		return nil, err
	}
	candidate := pickTable(tables, metricTablePattern)
	if candidate == "" {
		return &Answer{
			Text: "I couldn't find the expected metrics table to produce the chart.",
			SQL:  "-- Expected columns: period(date), revenue(numeric), marketing_spend(numeric)",
		}, nil
	}

	sql := fmt.Sprintf(`SELECT period::date AS date, revenue::float8 AS revenue,
		marketing_spend::float8 AS marketing_spend
		FROM %s WHERE period >= now() - interval '90 days' ORDER BY 1`, candidate)

	rows, err := a.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("revenue chart query: %w", err)
	}
	defer rows.Close()

	data := []map[string]any{}
	for rows.Next() {
		var date time.Time
		var revenue, spend float64
		if err := rows.Scan(&date, &revenue, &spend); err != nil {
			return nil, err
		}
		data = append(data, map[string]any{
			"date":            date.Format("2006-01-02"),
			"revenue":         revenue,
			"marketing_spend": spend,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &Answer{
		Text: "Here's a chart of revenue vs marketing spend for the last 90 days.",
		SQL:  sql,
		Chart: &Chart{
			Type:  "line",
			XKey:  "date",
			YKeys: []string{"revenue", "marketing_spend"},
			Data:  data,
			Title: "Revenue vs Marketing Spend (90d)",
		},
	}, nil
}

func (a *Answerer) repeatCustomers(ctx context.Context) (*Answer, error) {
	tables, err := a.listTables(ctx)
	if err != nil {
		return nil, err
	}
	candidate := pickTable(tables, orderTablePattern)
	if candidate == "" {
		return &Answer{
			Text: "I could not find orders/customers tables to compute repeat frequency.",
			SQL:  "-- Need orders and customers tables to compute repeat frequency by segment",
		}, nil
	}

	sql := fmt.Sprintf(`WITH repeats AS (
		SELECT customer_id, count(*) AS orders FROM %s GROUP BY 1
	)
	SELECT segment, avg(orders)::float8 AS avg_orders
	FROM repeats r JOIN customers c ON c.id = r.customer_id
	GROUP BY 1 ORDER BY 2 DESC LIMIT 5`, candidate)

	rows, err := a.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("repeat customers query: %w", err)
	}
	defer rows.Close()

	text := "I analyzed repeat frequency by customer segment."
	if rows.Next() {
		var segment string
		var avgOrders float64
		if err := rows.Scan(&segment, &avgOrders); err != nil {
			return nil, err
		}
		text += fmt.Sprintf(" Top segment: %s with %.2f avg orders.", segment, avgOrders)
	} else {
		text += " No rows found."
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &Answer{Text: text, SQL: sql}, nil
}

// SplitDeltas cuts text into alternating word and whitespace chunks so the
// stream can replay it incrementally; concatenating the chunks restores the
// exact original text.
func SplitDeltas(text string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range text {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if i > 0 && isSpace != inSpace {
			out = append(out, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
