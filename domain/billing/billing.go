// Package billing defines the raw billing data model and pure functions
// deriving usage summaries from it.
package billing

import (
	"fmt"
	"time"
)

// Period identifies a billing cycle as a (year, month) pair in UTC.
// Equality is the comparison key for month rollover.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the billing period containing t, evaluated in UTC.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// Key returns a stable string form, e.g. "2025-10".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Label returns a human-readable form, e.g. "October 2025".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.Month.String(), p.Year)
}

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following billing period.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// LineItem is one raw usage record from the billing endpoint.
// Absent numeric fields arrive as zero; items are never mutated.
type LineItem struct {
	Product        string
	Quantity       float64
	NetAmount      float64
	UnitPrice      float64
	DiscountAmount float64
}

// UsageReport is what a usage source returns for one period: the
// authenticated login plus its raw line items.
type UsageReport struct {
	Login string
	Items []LineItem
}

// Summary is the derived, immutable aggregation of matching line items.
type Summary struct {
	// SpendUSD is the sum of net amounts for matching-product items.
	SpendUSD float64
	// TotalQuantity is the rounded sum of item quantities.
	TotalQuantity int64
	// TotalIncludedQuantity is the heuristic count of units covered by
	// the subscription, recovered from discount dollars. Best-effort.
	TotalIncludedQuantity int64
	// TotalOverageQuantity is max(0, TotalQuantity - TotalIncludedQuantity).
	TotalOverageQuantity int64
}
