package billing_test

import (
	"math"
	"testing"

	"github.com/quotawatch/quotawatch/domain/billing"
)

func TestSummarize_SinglePremiumItem(t *testing.T) {
	items := []billing.LineItem{
		{Product: "copilot", Quantity: 120, NetAmount: 5.0, UnitPrice: 0.04, DiscountAmount: 4.8},
	}

	got := billing.Summarize(items, "copilot")

	if got.SpendUSD != 5.0 {
		t.Errorf("SpendUSD = %f, want 5.0", got.SpendUSD)
	}
	if got.TotalQuantity != 120 {
		t.Errorf("TotalQuantity = %d, want 120", got.TotalQuantity)
	}
	// 4.8 / 0.04 = 120 units recovered from the discount
	if got.TotalIncludedQuantity != 120 {
		t.Errorf("TotalIncludedQuantity = %d, want 120", got.TotalIncludedQuantity)
	}
	if got.TotalOverageQuantity != 0 {
		t.Errorf("TotalOverageQuantity = %d, want 0", got.TotalOverageQuantity)
	}
}

func TestSummarize_ProductFilter(t *testing.T) {
	items := []billing.LineItem{
		{Product: "copilot", Quantity: 10, NetAmount: 1.0},
		{Product: "Copilot", Quantity: 5, NetAmount: 0.5},
		{Product: "actions", Quantity: 100, NetAmount: 9.0},
	}

	got := billing.Summarize(items, "copilot")

	if got.TotalQuantity != 15 {
		t.Errorf("TotalQuantity = %d, want 15 (case-insensitive match, actions excluded)", got.TotalQuantity)
	}
	if got.SpendUSD != 1.5 {
		t.Errorf("SpendUSD = %f, want 1.5", got.SpendUSD)
	}
}

func TestSummarize_Overage(t *testing.T) {
	items := []billing.LineItem{
		{Product: "copilot", Quantity: 300, NetAmount: 7.2, UnitPrice: 0.04, DiscountAmount: 4.8},
	}

	got := billing.Summarize(items, "copilot")

	if got.TotalIncludedQuantity != 120 {
		t.Errorf("TotalIncludedQuantity = %d, want 120", got.TotalIncludedQuantity)
	}
	if got.TotalOverageQuantity != 180 {
		t.Errorf("TotalOverageQuantity = %d, want 180", got.TotalOverageQuantity)
	}
}

func TestSummarize_FractionalQuantitiesRoundedOnce(t *testing.T) {
	// Three items of 0.4 sum to 1.2; a per-item round would yield 0.
	items := []billing.LineItem{
		{Product: "copilot", Quantity: 0.4},
		{Product: "copilot", Quantity: 0.4},
		{Product: "copilot", Quantity: 0.4},
	}

	got := billing.Summarize(items, "copilot")

	if got.TotalQuantity != 1 {
		t.Errorf("TotalQuantity = %d, want 1 (single round of the sum)", got.TotalQuantity)
	}
}

func TestSummarize_IgnoresNonPositiveDiscountOrPrice(t *testing.T) {
	tests := []struct {
		name string
		item billing.LineItem
	}{
		{"zero discount", billing.LineItem{Product: "copilot", Quantity: 10, UnitPrice: 0.04}},
		{"zero price", billing.LineItem{Product: "copilot", Quantity: 10, DiscountAmount: 4.8}},
		{"negative discount", billing.LineItem{Product: "copilot", Quantity: 10, UnitPrice: 0.04, DiscountAmount: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.Summarize([]billing.LineItem{tt.item}, "copilot")
			if got.TotalIncludedQuantity != 0 {
				t.Errorf("TotalIncludedQuantity = %d, want 0", got.TotalIncludedQuantity)
			}
		})
	}
}

func TestSummarize_NonFiniteValuesTreatedAsZero(t *testing.T) {
	items := []billing.LineItem{
		{Product: "copilot", Quantity: math.NaN(), NetAmount: math.Inf(1)},
		{Product: "copilot", Quantity: 3, NetAmount: 0.12},
	}

	got := billing.Summarize(items, "copilot")

	if got.TotalQuantity != 3 {
		t.Errorf("TotalQuantity = %d, want 3", got.TotalQuantity)
	}
	if got.SpendUSD != 0.12 {
		t.Errorf("SpendUSD = %f, want 0.12", got.SpendUSD)
	}
}

func TestSummarize_EmptyItems(t *testing.T) {
	got := billing.Summarize(nil, "copilot")

	if got.SpendUSD != 0 || got.TotalQuantity != 0 || got.TotalIncludedQuantity != 0 || got.TotalOverageQuantity != 0 {
		t.Errorf("expected zero summary, got %+v", got)
	}
}
