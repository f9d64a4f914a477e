/*
request.go - Installation request builder

PURPOSE:
  Turns a user's proposed installation into InstalledRecord payload rows,
  or rejects it. The builder is a pure function of an Engine and the
  proposal: nothing is sent anywhere until the caller appends the rows.

ALGORITHM (per entry, in order):
  1. Form checks: unit, door type, thickness, at least one component,
     quantity > 0.
  2. Resolve the target set for (unit, category):
       - If the unit has an incomplete set, target the lowest-numbered
         one. Quantity must be exactly 1 (ConflictingBatchSize) and no
         selected component may already be in it (DuplicateComponent).
       - Otherwise create new sets, numbered with the lowest free set
         numbers. Fails CapacityExceeded if quantity exceeds the free
         slots, Capacity(category) - existing. For Main this always resolves to set 1.
  3. Supply: for each component, quantity must fit in pending for the
     (door type, thickness, component) cell. Pending is consumed across
     the whole batch, so two units cannot both claim the last door.
  4. Emit one row per (set, component).

  Entries are applied to a working copy of unit state in order, so a
  batch naming the same unit twice sees its own earlier rows.

ALL-OR-NOTHING:
  Any failure discards every row; the caller gets a *RequestError and no
  payload.
*/
package doors

import (
	"fmt"
	"math"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// InstallEntry is one proposed installation for one unit.
type InstallEntry struct {
	UnitID     UnitID
	DoorType   DoorType
	Thickness  Thickness
	Components []Component
	Quantity   int
}

// NewInstallEntries applies the same selection to every unit, the way the
// install form does.
func NewInstallEntries(units []UnitID, d DoorType, t Thickness, components []Component, qty int) []InstallEntry {
	entries := make([]InstallEntry, len(units))
	for i, u := range units {
		entries[i] = InstallEntry{
			UnitID:     u,
			DoorType:   d,
			Thickness:  t,
			Components: components,
			Quantity:   qty,
		}
	}
	return entries
}

// =============================================================================
// BUILDER
// =============================================================================

type builder struct {
	engine   *Engine
	state    map[setKey]*CategoryState
	consumed map[Cell]int
}

// BuildInstallation validates entries against the engine's snapshot and
// returns the rows to append.
func BuildInstallation(e *Engine, entries []InstallEntry) ([]InstalledRecord, error) {
	if len(entries) == 0 {
		return nil, newRequestError(CodeNoUnitsSelected, "", "select at least one unit")
	}

	b := &builder{
		engine:   e,
		state:    make(map[setKey]*CategoryState),
		consumed: make(map[Cell]int),
	}

	var rows []InstalledRecord
	for _, entry := range entries {
		out, err := b.apply(entry)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out...)
	}
	return rows, nil
}

func (b *builder) apply(entry InstallEntry) ([]InstalledRecord, error) {
	components, err := validateEntry(entry)
	if err != nil {
		return nil, err
	}

	unit, ok := b.engine.Unit(entry.UnitID)
	if !ok {
		return nil, newRequestError(CodeUnknownUnit, entry.UnitID, "unit is not part of this tower")
	}

	cs := b.categoryState(unit, entry.DoorType)
	if !cs.Applicable {
		return nil, newRequestError(CodeCategoryNotApplicable, unit.ID,
			"%s doors cannot be installed in a %q unit", entry.DoorType, unit.Type)
	}

	setNos, err := resolveSets(unit.ID, cs, components, entry.Quantity)
	if err != nil {
		return nil, err
	}

	if err := b.reserveSupply(unit.ID, entry, components); err != nil {
		return nil, err
	}

	rows := make([]InstalledRecord, 0, len(setNos)*len(components))
	for _, no := range setNos {
		for _, c := range components {
			cell := Cell{DoorType: entry.DoorType, Thickness: entry.Thickness, Component: c}
			rows = append(rows, InstalledRecord{
				ProjectID: unit.ProjectID,
				TowerID:   unit.TowerID,
				UnitID:    unit.ID,
				FloorID:   unit.FloorID,
				Cell:      cell,
				SetNo:     no,
				Quantity:  1,
			})
		}
		cs.add(no, components)
	}
	return rows, nil
}

func validateEntry(entry InstallEntry) ([]Component, error) {
	if entry.UnitID == "" {
		return nil, newRequestError(CodeNoUnitsSelected, "", "entry has no unit")
	}
	if !entry.DoorType.Valid() {
		return nil, newRequestError(CodeIncompleteForm, entry.UnitID, "select a door type")
	}
	if !entry.Thickness.Valid() {
		return nil, newRequestError(CodeIncompleteForm, entry.UnitID, "select a door thickness")
	}
	if entry.Quantity <= 0 {
		return nil, newRequestError(CodeIncompleteForm, entry.UnitID, "quantity must be positive, got %d", entry.Quantity)
	}

	var seen ComponentSet
	var components []Component
	for _, c := range entry.Components {
		if !c.Valid() {
			return nil, newRequestError(CodeIncompleteForm, entry.UnitID, "unknown component type %q", c)
		}
		if seen.Has(c) {
			continue
		}
		seen = seen.With(c)
		components = append(components, c)
	}
	if len(components) == 0 {
		return nil, newRequestError(CodeIncompleteForm, entry.UnitID, "select at least one component type")
	}
	return components, nil
}

// resolveSets picks the set numbers an entry writes to.
func resolveSets(unit UnitID, cs *CategoryState, components []Component, qty int) ([]int, error) {
	if inc, ok := cs.FirstIncomplete(); ok {
		if qty != 1 {
			return nil, &RequestError{
				Code:     CodeConflictingBatchSize,
				UnitID:   unit,
				SetNo:    inc.SetNo,
				Required: qty,
				Pending:  1,
				Message:  fmt.Sprintf("%s set %d is incomplete; quantity must be 1, got %d", cs.Category, inc.SetNo, qty),
			}
		}
		for _, c := range components {
			if inc.Members.Has(c) {
				return nil, &RequestError{
					Code:    CodeDuplicateComponent,
					UnitID:  unit,
					SetNo:   inc.SetNo,
					Message: fmt.Sprintf("%s already installed in %s set %d", c, cs.Category, inc.SetNo),
				}
			}
		}
		return []int{inc.SetNo}, nil
	}

	existing := cs.SetCount()
	free := max(0, cs.Capacity-existing)
	if qty > free {
		return nil, &RequestError{
			Code:     CodeCapacityExceeded,
			UnitID:   unit,
			Required: qty,
			Pending:  free,
			Message: fmt.Sprintf("%s allows %d sets per unit; %d exist, %d requested",
				cs.Category, cs.Capacity, existing, qty),
		}
	}

	nos := make([]int, 0, free)
	for no := 1; no <= cs.Capacity && len(nos) < qty; no++ {
		if _, used := cs.Set(no); !used {
			nos = append(nos, no)
		}
	}
	return nos, nil
}

func (b *builder) reserveSupply(unit UnitID, entry InstallEntry, components []Component) error {
	for _, c := range components {
		cell := Cell{DoorType: entry.DoorType, Thickness: entry.Thickness, Component: c}
		pending := b.engine.Pending(cell)
		used := b.consumed[cell]
		if entry.Quantity > pending-used {
			required := used + entry.Quantity
			if required < used {
				required = math.MaxInt
			}
			return &RequestError{
				Code:     CodeInsufficientSupply,
				UnitID:   unit,
				Cell:     &cell,
				Required: required,
				Pending:  pending,
				Message:  fmt.Sprintf("%s requires %d, only %d pending", cell, required, pending),
			}
		}
	}
	for _, c := range components {
		cell := Cell{DoorType: entry.DoorType, Thickness: entry.Thickness, Component: c}
		b.consumed[cell] += entry.Quantity
	}
	return nil
}

func (b *builder) categoryState(u Unit, d DoorType) *CategoryState {
	k := setKey{Unit: u.ID, Category: d}
	if cs, ok := b.state[k]; ok {
		return cs
	}
	cs := b.engine.categoryState(u, d)
	b.state[k] = &cs
	return &cs
}

// add records components into set no of the working state.
func (cs *CategoryState) add(no int, components []Component) {
	idx := -1
	for i, s := range cs.Sets {
		if s.SetNo == no {
			idx = i
			break
		}
	}
	if idx < 0 {
		cs.Sets = append(cs.Sets, SetState{SetNo: no})
		idx = len(cs.Sets) - 1
	}
	for _, c := range components {
		cs.Sets[idx].Members = cs.Sets[idx].Members.With(c)
	}
	cs.Sets[idx].Complete = IsComplete(cs.Sets[idx].Members)
	sortSets(cs.Sets)
	cs.recount()
}
