package doors

import "github.com/shopspring/decimal"

// Progress is the data behind the tower report charts.
type Progress struct {
	Scope     Scope
	DoorTypes []DoorTypeProgress
	Overall   DoorTypeProgress
}

// DoorTypeProgress holds totals and completion percentages. Percentages are
// rounded to two places; a zero denominator yields zero.
type DoorTypeProgress struct {
	DoorType         DoorType
	Required         int
	Supplied         int
	Installed        int
	Pending          int
	SuppliedPercent  decimal.Decimal // supplied / required
	InstalledPercent decimal.Decimal // installed / required
	UtilisedPercent  decimal.Decimal // installed / supplied

	// Set on Overall only: units with every applicable category at capacity.
	UnitsComplete int
	UnitsTotal    int
}

var hundred = decimal.NewFromInt(100)

func percent(num, den int) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(num)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(den))).
		Round(2)
}

func newDoorTypeProgress(t Totals) DoorTypeProgress {
	return DoorTypeProgress{
		DoorType:         t.DoorType,
		Required:         t.Required,
		Supplied:         t.Supplied,
		Installed:        t.Installed,
		Pending:          t.Pending,
		SuppliedPercent:  percent(t.Supplied, t.Required),
		InstalledPercent: percent(t.Installed, t.Required),
		UtilisedPercent:  percent(t.Installed, t.Supplied),
	}
}

// Progress summarises the engine's snapshot for reporting.
func (e *Engine) Progress() Progress {
	p := Progress{Scope: e.ledger.Scope}
	var all Totals
	for _, t := range e.TotalsByDoorType() {
		p.DoorTypes = append(p.DoorTypes, newDoorTypeProgress(t))
		all.Required += t.Required
		all.Supplied += t.Supplied
		all.Installed += t.Installed
		all.Pending += t.Pending
	}
	p.Overall = newDoorTypeProgress(all)

	for _, u := range e.ledger.Units {
		done := true
		for _, d := range Categories(u.Type) {
			if !e.categoryState(u, d).AtCapacity {
				done = false
				break
			}
		}
		if done {
			p.Overall.UnitsComplete++
		}
	}
	p.Overall.UnitsTotal = len(e.ledger.Units)
	return p
}
