/*
reconcile.go - Reconciliation engine

PURPOSE:
  Derives every aggregate the dashboard shows from a Ledger snapshot:
  the 36-cell matrix (pending and supply remaining), and per-unit
  set state. The Engine is built once per snapshot and is read-only
  afterwards; a new snapshot means a new Engine.

KEY FORMULAS:
  supplied(cell)  = sum of SuppliedRecord.Count for the cell
  installed(cell) = sum of InstalledRecord quantities for the cell
  pending(cell)   = max(0, supplied - installed)
  remaining(cell) = max(0, required - supplied)

  Sums are always over the full history, never windowed.

SET STATE:
  Installed records are grouped per (unit, door category, set number).
  Each group is a ComponentSet. A group holding every component is
  complete; a non-empty group missing one is started.

  Set numbers outside [1, Capacity(category)] can only come from bad
  backend data. They are kept in CategoryState.Overflow for display and
  ignored by every count. Rows with no set number count as set 1.

SEE ALSO:
  - policy.go:  Capacity and applicability
  - request.go: Uses Engine to validate installation requests
  - supply.go:  Uses Remaining to clamp supply
*/
package doors

import "sort"

// =============================================================================
// MATRIX - Per-cell balances
// =============================================================================

// CellBalance is every derived count for one cell.
type CellBalance struct {
	Cell      Cell
	Required  int
	Supplied  int
	Installed int
	Pending   int // max(0, Supplied - Installed)
	Remaining int // max(0, Required - Supplied)
}

// Matrix holds one CellBalance per cell of the fixed enumeration.
type Matrix struct {
	Cells []CellBalance
	index map[Cell]int
}

func newMatrix(cells []CellBalance) Matrix {
	m := Matrix{Cells: cells, index: make(map[Cell]int, len(cells))}
	for i, c := range cells {
		m.index[c.Cell] = i
	}
	return m
}

// At returns the balance for a cell. Cells outside the enumeration are zero.
func (m Matrix) At(c Cell) CellBalance {
	if i, ok := m.index[c]; ok {
		return m.Cells[i]
	}
	return CellBalance{Cell: c}
}

// ByDoorType returns the cells belonging to one door type.
func (m Matrix) ByDoorType(d DoorType) []CellBalance {
	var out []CellBalance
	for _, c := range m.Cells {
		if c.Cell.DoorType == d {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// UNIT STATE
// =============================================================================

// SetState is one door set of one unit.
type SetState struct {
	SetNo    int
	Members  ComponentSet
	Complete bool
}

// CategoryState summarises a unit's sets for one door category.
type CategoryState struct {
	Category      DoorType
	Applicable    bool
	Capacity      int
	Sets          []SetState // ascending set number
	Overflow      []SetState
	CompleteCount int
	StartedCount  int
	AtCapacity    bool
}

// SetCount is the number of sets with at least one component.
func (c CategoryState) SetCount() int { return len(c.Sets) }

// FirstIncomplete returns the lowest-numbered started set.
func (c CategoryState) FirstIncomplete() (SetState, bool) {
	for _, s := range c.Sets {
		if !s.Complete {
			return s, true
		}
	}
	return SetState{}, false
}

// Set returns the set with the given number, if any component is installed.
func (c CategoryState) Set(no int) (SetState, bool) {
	for _, s := range c.Sets {
		if s.SetNo == no {
			return s, true
		}
	}
	return SetState{}, false
}

// UnitState is the installed state of one unit across all categories.
type UnitState struct {
	Unit       Unit
	Categories map[DoorType]CategoryState
}

func (u UnitState) Category(d DoorType) CategoryState { return u.Categories[d] }

// =============================================================================
// ENGINE
// =============================================================================

type setKey struct {
	Unit     UnitID
	Category DoorType
}

// Engine computes aggregates over one Ledger snapshot.
type Engine struct {
	ledger    Ledger
	required  map[Cell]int
	supplied  map[Cell]int
	installed map[Cell]int
	units     map[UnitID]Unit
	sets      map[setKey]map[int]ComponentSet
}

// NewEngine indexes a snapshot. Records outside the snapshot's scope are
// ignored; records with an empty project or tower are assumed in scope.
func NewEngine(l Ledger) *Engine {
	e := &Engine{
		ledger:    l,
		required:  make(map[Cell]int),
		supplied:  make(map[Cell]int),
		installed: make(map[Cell]int),
		units:     make(map[UnitID]Unit, len(l.Units)),
		sets:      make(map[setKey]map[int]ComponentSet),
	}

	for _, u := range l.Units {
		e.units[u.ID] = u
	}
	for _, r := range l.Requirements {
		if l.Scope.contains(r.ProjectID, r.TowerID) {
			e.required[r.Cell] += r.Count
		}
	}
	for _, r := range l.Supplied {
		if l.Scope.contains(r.ProjectID, r.TowerID) {
			e.supplied[r.Cell] += r.Count
		}
	}
	for _, r := range l.Installed {
		if !l.Scope.contains(r.ProjectID, r.TowerID) {
			continue
		}
		e.installed[r.Cell] += r.quantity()

		k := setKey{Unit: r.UnitID, Category: r.Cell.DoorType}
		if e.sets[k] == nil {
			e.sets[k] = make(map[int]ComponentSet)
		}
		no := r.SetNo
		if no <= 0 {
			no = 1
		}
		e.sets[k][no] = e.sets[k][no].With(r.Cell.Component)
	}
	return e
}

func (s Scope) contains(p ProjectID, t TowerID) bool {
	if s.ProjectID != "" && p != "" && s.ProjectID != p {
		return false
	}
	if s.TowerID != "" && t != "" && s.TowerID != t {
		return false
	}
	return true
}

// Ledger returns the snapshot the engine was built from.
func (e *Engine) Ledger() Ledger { return e.ledger }

// Units returns the units in scope, in snapshot order.
func (e *Engine) Units() []Unit { return e.ledger.Units }

// Unit looks up a unit by ID.
func (e *Engine) Unit(id UnitID) (Unit, bool) {
	u, ok := e.units[id]
	return u, ok
}

// Balance returns the derived counts for one cell.
func (e *Engine) Balance(c Cell) CellBalance {
	b := CellBalance{
		Cell:      c,
		Required:  e.required[c],
		Supplied:  e.supplied[c],
		Installed: e.installed[c],
	}
	if b.Supplied > b.Installed {
		b.Pending = b.Supplied - b.Installed
	}
	if b.Required > b.Supplied {
		b.Remaining = b.Required - b.Supplied
	}
	return b
}

// Pending returns max(0, supplied - installed) for one cell.
func (e *Engine) Pending(c Cell) int { return e.Balance(c).Pending }

// PendingMatrix returns the balance of all 36 cells. Each cell also carries
// Required and Remaining for supply intake.
func (e *Engine) PendingMatrix() Matrix {
	cells := AllCells()
	out := make([]CellBalance, len(cells))
	for i, c := range cells {
		out[i] = e.Balance(c)
	}
	return newMatrix(out)
}

// Fulfilled reports whether every cell has been supplied up to its
// requirement.
func (e *Engine) Fulfilled() bool {
	for _, c := range AllCells() {
		if e.Balance(c).Remaining > 0 {
			return false
		}
	}
	return true
}

// UnitState returns per-category set state for a unit.
func (e *Engine) UnitState(id UnitID) (UnitState, error) {
	u, ok := e.units[id]
	if !ok {
		return UnitState{}, newRequestError(CodeUnknownUnit, id, "unit is not part of this tower")
	}
	st := UnitState{Unit: u, Categories: make(map[DoorType]CategoryState, len(DoorTypes))}
	for _, d := range DoorTypes {
		st.Categories[d] = e.categoryState(u, d)
	}
	return st, nil
}

func (e *Engine) categoryState(u Unit, d DoorType) CategoryState {
	cs := CategoryState{
		Category:   d,
		Applicable: Applicable(u.Type, d),
		Capacity:   Capacity(d),
	}
	for no, members := range e.sets[setKey{Unit: u.ID, Category: d}] {
		s := SetState{SetNo: no, Members: members, Complete: IsComplete(members)}
		if no < 1 || no > cs.Capacity {
			cs.Overflow = append(cs.Overflow, s)
			continue
		}
		cs.Sets = append(cs.Sets, s)
	}
	sortSets(cs.Sets)
	sortSets(cs.Overflow)
	cs.recount()
	return cs
}

func sortSets(sets []SetState) {
	sort.Slice(sets, func(i, j int) bool { return sets[i].SetNo < sets[j].SetNo })
}

func (cs *CategoryState) recount() {
	cs.CompleteCount, cs.StartedCount = 0, 0
	for _, s := range cs.Sets {
		if s.Complete {
			cs.CompleteCount++
		} else {
			cs.StartedCount++
		}
	}
	cs.AtCapacity = cs.CompleteCount >= cs.Capacity
}

// UnitsEligibleFor returns the units a pending cell's install action may
// target: the category applies, the unit is below capacity, and either its
// first incomplete set lacks the component or it has room for a new set.
// Thickness does not restrict eligibility; sets are per category.
func (e *Engine) UnitsEligibleFor(d DoorType, _ Thickness, c Component) []Unit {
	var out []Unit
	for _, u := range e.ledger.Units {
		cs := e.categoryState(u, d)
		if !cs.Applicable || cs.AtCapacity {
			continue
		}
		if inc, ok := cs.FirstIncomplete(); ok {
			if !inc.Members.Has(c) {
				out = append(out, u)
			}
			continue
		}
		if cs.SetCount() < cs.Capacity {
			out = append(out, u)
		}
	}
	return out
}

// =============================================================================
// TOTALS
// =============================================================================

// Totals sums balances per door type.
type Totals struct {
	DoorType  DoorType
	Required  int
	Supplied  int
	Installed int
	Pending   int
}

// TotalsByDoorType returns one Totals per door type in DoorTypes order.
func (e *Engine) TotalsByDoorType() []Totals {
	out := make([]Totals, 0, len(DoorTypes))
	for _, d := range DoorTypes {
		t := Totals{DoorType: d}
		for _, t2 := range Thicknesses {
			for _, c := range Components {
				b := e.Balance(Cell{DoorType: d, Thickness: t2, Component: c})
				t.Required += b.Required
				t.Supplied += b.Supplied
				t.Installed += b.Installed
				t.Pending += b.Pending
			}
		}
		out = append(out, t)
	}
	return out
}
