// Package store provides in-memory doors.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/doorworks/doors"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	units        map[doors.Scope][]doors.Unit
	requirements map[doors.Scope][]doors.Requirement
	supplied     map[doors.Scope][]doors.SuppliedRecord
	installed    map[doors.Scope][]doors.InstalledRecord
	ids          map[string]bool
	slots        map[slot]bool
}

// slot is the uniqueness key of an installed component.
type slot struct {
	Unit      doors.UnitID
	DoorType  doors.DoorType
	SetNo     int
	Component doors.Component
}

func NewMemory() *Memory {
	return &Memory{
		units:        make(map[doors.Scope][]doors.Unit),
		requirements: make(map[doors.Scope][]doors.Requirement),
		supplied:     make(map[doors.Scope][]doors.SuppliedRecord),
		installed:    make(map[doors.Scope][]doors.InstalledRecord),
		ids:          make(map[string]bool),
		slots:        make(map[slot]bool),
	}
}

func scopeOf(p doors.ProjectID, t doors.TowerID) doors.Scope {
	return doors.Scope{ProjectID: p, TowerID: t}
}

// AddUnits seeds site data. Units are owned by the backend, not the ledger.
func (m *Memory) AddUnits(units ...doors.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range units {
		k := scopeOf(u.ProjectID, u.TowerID)
		m.units[k] = append(m.units[k], u)
	}
}

// SetRequirements seeds tower requirements.
func (m *Memory) SetRequirements(reqs ...doors.Requirement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range reqs {
		k := scopeOf(r.ProjectID, r.TowerID)
		m.requirements[k] = append(m.requirements[k], r)
	}
}

func (m *Memory) Snapshot(_ context.Context, scope doors.Scope) (doors.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return doors.Ledger{
		Scope:        scope,
		Units:        append([]doors.Unit(nil), m.units[scope]...),
		Requirements: append([]doors.Requirement(nil), m.requirements[scope]...),
		Supplied:     append([]doors.SuppliedRecord(nil), m.supplied[scope]...),
		Installed:    append([]doors.InstalledRecord(nil), m.installed[scope]...),
	}, nil
}

// AppendInstalled adds rows atomically. Append-only.
func (m *Memory) AppendInstalled(_ context.Context, rows []doors.InstalledRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check everything first (atomic check)
	batch := make(map[slot]bool, len(rows))
	for _, r := range rows {
		if r.ID != "" && m.ids[r.ID] {
			return doors.ErrDuplicateRecord
		}
		s := slot{Unit: r.UnitID, DoorType: r.Cell.DoorType, SetNo: r.SetNo, Component: r.Cell.Component}
		if m.slots[s] || batch[s] {
			return doors.ErrDuplicateRecord
		}
		batch[s] = true
	}

	for _, r := range rows {
		k := scopeOf(r.ProjectID, r.TowerID)
		m.installed[k] = append(m.installed[k], r)
		if r.ID != "" {
			m.ids[r.ID] = true
		}
		m.slots[slot{Unit: r.UnitID, DoorType: r.Cell.DoorType, SetNo: r.SetNo, Component: r.Cell.Component}] = true
	}
	return nil
}

// AppendSupply adds the plan's rows atomically.
func (m *Memory) AppendSupply(_ context.Context, plan doors.SupplyPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := plan.Records()
	for _, r := range rows {
		if r.ID != "" && m.ids[r.ID] {
			return doors.ErrDuplicateRecord
		}
	}
	for _, r := range rows {
		k := scopeOf(r.ProjectID, r.TowerID)
		m.supplied[k] = append(m.supplied[k], r)
		if r.ID != "" {
			m.ids[r.ID] = true
		}
	}
	return nil
}

// Failing wraps a Store and fails every append. Used to check that a
// failed dispatch leaves the ledger unchanged.
type Failing struct {
	doors.Store
	Err error
}

func (f Failing) AppendInstalled(context.Context, []doors.InstalledRecord) error { return f.Err }
func (f Failing) AppendSupply(context.Context, doors.SupplyPlan) error { return f.Err }
