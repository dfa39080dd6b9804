package plan_test

import (
	"testing"

	"github.com/quotawatch/quotawatch/domain/plan"
)

var catalog = plan.Catalog{
	{ID: "free", Name: "Copilot Free", IncludedPerMonth: 50},
	{ID: "pro", Name: "Copilot Pro", IncludedPerMonth: 300},
	{ID: "pro-plus", Name: "Copilot Pro+", IncludedPerMonth: 1500},
}

func TestLookup_Found(t *testing.T) {
	p, ok := catalog.Lookup("pro")
	if !ok {
		t.Fatal("expected pro to be found")
	}
	if p.IncludedPerMonth != 300 {
		t.Errorf("IncludedPerMonth = %d, want 300", p.IncludedPerMonth)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	if _, ok := catalog.Lookup("Pro-Plus"); !ok {
		t.Error("expected case-insensitive lookup to find pro-plus")
	}
}

func TestLookup_NotFound(t *testing.T) {
	if _, ok := catalog.Lookup("enterprise"); ok {
		t.Error("expected enterprise to be absent")
	}
}

func TestResolveIncluded(t *testing.T) {
	tests := []struct {
		name     string
		selected string
		override int64
		want     int64
	}{
		{"override wins over plan", "pro", 999, 999},
		{"plan when no override", "pro", 0, 300},
		{"zero when nothing configured", "", 0, 0},
		{"unknown plan falls back to zero", "enterprise", 0, 0},
		{"override without plan", "", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plan.ResolveIncluded(catalog, tt.selected, tt.override)
			if got != tt.want {
				t.Errorf("ResolveIncluded = %d, want %d", got, tt.want)
			}
		})
	}
}
