package billing

import (
	"math"
	"strings"
)

// Summarize aggregates the line items matching product (case-insensitive)
// into a Summary. This is a PURE function.
//
// Quantities are logically integral request counts; they are summed as
// floating point and rounded once to avoid per-item rounding drift.
//
// The included quantity is a heuristic: the billing data has no explicit
// quota field, so units covered by the subscription are recovered from
// dollars discounted as round(discount / unitPrice) per item. Items with
// non-positive or missing discount or price contribute nothing.
func Summarize(items []LineItem, product string) Summary {
	var (
		spend    float64
		quantity float64
		included int64
	)

	for _, it := range items {
		if !strings.EqualFold(it.Product, product) {
			continue
		}

		spend += finiteOrZero(it.NetAmount)
		quantity += finiteOrZero(it.Quantity)

		discount := finiteOrZero(it.DiscountAmount)
		price := finiteOrZero(it.UnitPrice)
		if discount > 0 && price > 0 {
			if units := int64(math.Round(discount / price)); units > 0 {
				included += units
			}
		}
	}

	total := int64(math.Round(quantity))

	overage := total - included
	if overage < 0 {
		overage = 0
	}

	return Summary{
		SpendUSD:              spend,
		TotalQuantity:         total,
		TotalIncludedQuantity: included,
		TotalOverageQuantity:  overage,
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
