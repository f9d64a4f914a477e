/*
supply.go - Supply intake

PURPOSE:
  Validates and normalises a supply submission for one tower before it is
  appended to the ledger.

RULES:
  remaining(cell) = max(0, required - suppliedTotal)

  Each proposed quantity is clamped to [0, remaining]. Clamps are reported
  back as SupplyAdjustments so the form can show what was accepted. A
  tower where every cell has remaining 0 is fulfilled and rejects supply
  outright with ErrTowerFulfilled.

PAYLOAD:
  One SupplyEntry per door type with a non-zero total, each carrying a
  per-thickness breakdown of component counts. Records() flattens a plan
  into SuppliedRecord ledger rows.
*/
package doors

import (
	"fmt"
	"time"
)

// SupplyProposal is what the supply form submits.
type SupplyProposal struct {
	Date       time.Time
	Quantities map[Cell]int
}

// SupplyAdjustment records a proposed quantity that was clamped.
type SupplyAdjustment struct {
	Cell      Cell
	Proposed  int
	Accepted  int
	Remaining int
}

// ThicknessSupply is the per-component breakdown for one thickness.
type ThicknessSupply struct {
	Thickness Thickness
	Counts    map[Component]int
}

// SupplyEntry is the payload for one door type of one tower.
type SupplyEntry struct {
	ProjectID   ProjectID
	TowerID     TowerID
	DoorType    DoorType
	Date        time.Time
	Thicknesses []ThicknessSupply
}

// Total sums every component count in the entry.
func (e SupplyEntry) Total() int {
	n := 0
	for _, t := range e.Thicknesses {
		for _, c := range t.Counts {
			n += c
		}
	}
	return n
}

// SupplyPlan is a validated supply submission.
type SupplyPlan struct {
	Scope       Scope
	Entries     []SupplyEntry
	Adjustments []SupplyAdjustment
}

// Records flattens the plan into ledger rows, one per non-zero cell.
func (p SupplyPlan) Records() []SuppliedRecord {
	var out []SuppliedRecord
	for _, e := range p.Entries {
		for _, t := range e.Thicknesses {
			for _, c := range Components {
				n := t.Counts[c]
				if n == 0 {
					continue
				}
				out = append(out, SuppliedRecord{
					ProjectID: e.ProjectID,
					TowerID:   e.TowerID,
					Cell:      Cell{DoorType: e.DoorType, Thickness: t.Thickness, Component: c},
					Date:      e.Date,
					Count:     n,
				})
			}
		}
	}
	return out
}

// BuildSupply clamps a proposal against the engine's requirement matrix.
func BuildSupply(e *Engine, p SupplyProposal) (SupplyPlan, error) {
	scope := e.Ledger().Scope
	if e.Fulfilled() {
		return SupplyPlan{}, fmt.Errorf("%w: tower %s", ErrTowerFulfilled, scope.TowerID)
	}
	if len(p.Quantities) == 0 {
		return SupplyPlan{}, newRequestError(CodeIncompleteForm, "", "enter at least one supply quantity")
	}
	for cell := range p.Quantities {
		if !cell.DoorType.Valid() || !cell.Thickness.Valid() || !cell.Component.Valid() {
			return SupplyPlan{}, newRequestError(CodeIncompleteForm, "", "unknown supply cell %s", cell)
		}
	}

	date := p.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	plan := SupplyPlan{Scope: scope}

	for _, d := range DoorTypes {
		entry := SupplyEntry{
			ProjectID: scope.ProjectID,
			TowerID:   scope.TowerID,
			DoorType:  d,
			Date:      date,
		}
		for _, t := range Thicknesses {
			ts := ThicknessSupply{Thickness: t, Counts: make(map[Component]int)}
			for _, c := range Components {
				cell := Cell{DoorType: d, Thickness: t, Component: c}
				proposed, ok := p.Quantities[cell]
				if !ok {
					continue
				}
				remaining := e.Balance(cell).Remaining
				accepted := clamp(proposed, 0, remaining)
				if accepted != proposed {
					plan.Adjustments = append(plan.Adjustments, SupplyAdjustment{
						Cell:      cell,
						Proposed:  proposed,
						Accepted:  accepted,
						Remaining: remaining,
					})
				}
				if accepted > 0 {
					ts.Counts[c] = accepted
				}
			}
			if len(ts.Counts) > 0 {
				entry.Thicknesses = append(entry.Thicknesses, ts)
			}
		}
		if entry.Total() > 0 {
			plan.Entries = append(plan.Entries, entry)
		}
	}

	if len(plan.Entries) == 0 {
		return plan, newRequestError(CodeIncompleteForm, "", "nothing left to supply for the entered cells")
	}
	return plan, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
