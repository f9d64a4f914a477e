package doors_test

import (
	"github.com/warp/doorworks/doors"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testScope = doors.Scope{ProjectID: "p-1", TowerID: "t-A"}

func cell(d doors.DoorType, t doors.Thickness, c doors.Component) doors.Cell {
	return doors.Cell{DoorType: d, Thickness: t, Component: c}
}

func unit(id, unitType string) doors.Unit {
	return doors.Unit{
		ID:        doors.UnitID(id),
		ProjectID: testScope.ProjectID,
		TowerID:   testScope.TowerID,
		FloorID:   "f-1",
		Type:      unitType,
	}
}

func supplied(c doors.Cell, n int) doors.SuppliedRecord {
	return doors.SuppliedRecord{ProjectID: testScope.ProjectID, TowerID: testScope.TowerID, Cell: c, Count: n}
}

func required(c doors.Cell, n int) doors.Requirement {
	return doors.Requirement{ProjectID: testScope.ProjectID, TowerID: testScope.TowerID, Cell: c, Count: n}
}

func installed(u string, c doors.Cell, setNo int) doors.InstalledRecord {
	return doors.InstalledRecord{
		ProjectID: testScope.ProjectID,
		TowerID:   testScope.TowerID,
		UnitID:    doors.UnitID(u),
		FloorID:   "f-1",
		Cell:      c,
		SetNo:     setNo,
		Quantity:  1,
	}
}

// completeSet installs all three components of one set.
func completeSet(u string, d doors.DoorType, t doors.Thickness, setNo int) []doors.InstalledRecord {
	var out []doors.InstalledRecord
	for _, c := range doors.Components {
		out = append(out, installed(u, cell(d, t, c), setNo))
	}
	return out
}

// supplyAll supplies n of every component for a door type and thickness.
func supplyAll(d doors.DoorType, t doors.Thickness, n int) []doors.SuppliedRecord {
	var out []doors.SuppliedRecord
	for _, c := range doors.Components {
		out = append(out, supplied(cell(d, t, c), n))
	}
	return out
}

type ledgerBuilder struct {
	l doors.Ledger
}

func newLedger(units ...doors.Unit) *ledgerBuilder {
	return &ledgerBuilder{l: doors.Ledger{Scope: testScope, Units: units}}
}

func (b *ledgerBuilder) supply(rs ...doors.SuppliedRecord) *ledgerBuilder {
	b.l.Supplied = append(b.l.Supplied, rs...)
	return b
}

func (b *ledgerBuilder) install(rs ...doors.InstalledRecord) *ledgerBuilder {
	b.l.Installed = append(b.l.Installed, rs...)
	return b
}

func (b *ledgerBuilder) require(rs ...doors.Requirement) *ledgerBuilder {
	b.l.Requirements = append(b.l.Requirements, rs...)
	return b
}

func (b *ledgerBuilder) engine() *doors.Engine {
	return doors.NewEngine(b.l)
}
