// Package plan resolves a configured plan catalog into included quantities.
package plan

import "strings"

// Plan describes a subscription tier and the metered units it includes
// per billing period.
type Plan struct {
	ID               string
	Name             string
	IncludedPerMonth int64
}

// Catalog is an ordered list of configured plans.
type Catalog []Plan

// Lookup returns the plan with the given id (case-insensitive).
func (c Catalog) Lookup(id string) (Plan, bool) {
	if id == "" {
		return Plan{}, false
	}
	for _, p := range c {
		if strings.EqualFold(p.ID, id) {
			return p, true
		}
	}
	return Plan{}, false
}

// ResolveIncluded picks the included-quantity override for a computation:
// an explicit override wins, then the selected plan's included quantity.
// Zero means "no override, fall back to the heuristic". This is a PURE
// function.
func ResolveIncluded(c Catalog, selectedPlan string, override int64) int64 {
	if override > 0 {
		return override
	}
	if p, ok := c.Lookup(selectedPlan); ok && p.IncludedPerMonth > 0 {
		return p.IncludedPerMonth
	}
	return 0
}
