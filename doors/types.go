/*
Package doors provides the door supply/installation reconciliation engine.

PURPOSE:
  Tracks, per residential unit, how many door components of each door type
  and thickness have been supplied versus installed. Everything here is a
  pure computation over an explicitly passed Ledger snapshot: nothing is
  cached, nothing is mutated, and every aggregate is re-derived from the
  full history on every call.

KEY CONCEPTS IN THIS FILE (types.go):
  - DoorType:  Main, Bedroom or Office. Also the capacity category.
  - Thickness: Door leaf thickness (100mm .. 250mm)
  - Component: Frames, Shutters or Hardwares. One of each makes a door.
  - Cell:      (door type, thickness, component) - the unit of supply
  - Unit:      A residential unit a door is installed into
  - Records:   Requirement, Supplied and Installed ledger entries

FIXED ENUMERATION:
  3 door types x 4 thicknesses x 3 components = 36 cells.
  AllCells() returns them in a stable order (door type, thickness, component)
  so matrices render and compare deterministically.

SEE ALSO:
  - policy.go:    Capacity per category, unit-type applicability
  - reconcile.go: Pending matrix and per-unit set state
  - request.go:   Installation request builder
  - supply.go:    Supply intake
*/
package doors

import (
	"strings"
	"time"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// DoorType is the kind of door. It doubles as the capacity category.
type DoorType string

const (
	DoorMain    DoorType = "Main"
	DoorBedroom DoorType = "Bedroom"
	DoorOffice  DoorType = "Office"
)

// DoorTypes lists door types in display order.
var DoorTypes = []DoorType{DoorMain, DoorBedroom, DoorOffice}

func (d DoorType) Valid() bool {
	switch d {
	case DoorMain, DoorBedroom, DoorOffice:
		return true
	}
	return false
}

// ParseDoorType accepts the backend spelling, case-insensitively.
func ParseDoorType(s string) (DoorType, bool) {
	for _, d := range DoorTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, true
		}
	}
	return "", false
}

type Thickness string

const (
	Thickness100 Thickness = "100mm"
	Thickness150 Thickness = "150mm"
	Thickness200 Thickness = "200mm"
	Thickness250 Thickness = "250mm"
)

var Thicknesses = []Thickness{Thickness100, Thickness150, Thickness200, Thickness250}

func (t Thickness) Valid() bool {
	for _, v := range Thicknesses {
		if v == t {
			return true
		}
	}
	return false
}

// ParseThickness accepts "250mm", "250 mm", "250MM" and a bare "250".
func ParseThickness(s string) (Thickness, bool) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if !strings.HasSuffix(norm, "mm") {
		norm += "mm"
	}
	t := Thickness(norm)
	return t, t.Valid()
}

type Component string

const (
	Frames    Component = "Frames"
	Shutters  Component = "Shutters"
	Hardwares Component = "Hardwares"
)

// Components lists every component type. All of them are required for a
// set to be complete.
var Components = []Component{Frames, Shutters, Hardwares}

func (c Component) Valid() bool {
	switch c {
	case Frames, Shutters, Hardwares:
		return true
	}
	return false
}

func ParseComponent(s string) (Component, bool) {
	for _, c := range Components {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// =============================================================================
// CELL - One (door type, thickness, component) coordinate
// =============================================================================

type Cell struct {
	DoorType  DoorType
	Thickness Thickness
	Component Component
}

func (c Cell) String() string {
	return string(c.DoorType) + "/" + string(c.Thickness) + "/" + string(c.Component)
}

// AllCells returns the 36 cells of the fixed enumeration.
func AllCells() []Cell {
	cells := make([]Cell, 0, len(DoorTypes)*len(Thicknesses)*len(Components))
	for _, d := range DoorTypes {
		for _, t := range Thicknesses {
			for _, c := range Components {
				cells = append(cells, Cell{DoorType: d, Thickness: t, Component: c})
			}
		}
	}
	return cells
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string
type TowerID string
type FloorID string
type UnitID string

// Scope selects one tower of one project. Every aggregate is per scope.
type Scope struct {
	ProjectID ProjectID
	TowerID   TowerID
}

// =============================================================================
// SITE MODEL
// =============================================================================

// Unit is read-only to the engine.
type Unit struct {
	ID        UnitID
	ProjectID ProjectID
	TowerID   TowerID
	FloorID   FloorID
	Type      string // e.g. "3B3T", "Office"
}

// =============================================================================
// LEDGER RECORDS
// =============================================================================

// Requirement is the ceiling supply may reach for one cell of a tower.
type Requirement struct {
	ProjectID ProjectID
	TowerID   TowerID
	Cell      Cell
	Count     int
}

// SuppliedRecord is an append-only supply entry.
type SuppliedRecord struct {
	ID        string
	ProjectID ProjectID
	TowerID   TowerID
	Cell      Cell
	Date      time.Time
	Count     int
}

// InstalledRecord is one physically installed component. Quantity is 1 for
// everything the builder emits; the field exists because the backend
// reports aggregated rows.
type InstalledRecord struct {
	ID        string
	ProjectID ProjectID
	TowerID   TowerID
	UnitID    UnitID
	FloorID   FloorID
	Cell      Cell
	SetNo     int
	Quantity  int
	CreatedAt time.Time
}

func (r InstalledRecord) quantity() int {
	if r.Quantity <= 0 {
		return 1
	}
	return r.Quantity
}

// Ledger is an immutable snapshot of everything known about one scope.
// The engine never modifies it.
type Ledger struct {
	Scope        Scope
	Units        []Unit
	Requirements []Requirement
	Supplied     []SuppliedRecord
	Installed    []InstalledRecord
}
