package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/doorworks/doors"
	"github.com/warp/doorworks/store/sqlite"
)

var scope = doors.Scope{ProjectID: "p-1", TowerID: "t-A"}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveUnits(ctx, []doors.Unit{
		{ID: "u-101", ProjectID: scope.ProjectID, TowerID: scope.TowerID, FloorID: "f-1", Type: "3B3T"},
		{ID: "u-102", ProjectID: scope.ProjectID, TowerID: scope.TowerID, FloorID: "f-1", Type: "Office"},
		{ID: "u-900", ProjectID: scope.ProjectID, TowerID: "t-B", FloorID: "f-9", Type: "2B2T"},
	}))
	var reqs []doors.Requirement
	for _, c := range doors.Components {
		reqs = append(reqs, doors.Requirement{
			ProjectID: scope.ProjectID,
			TowerID:   scope.TowerID,
			Cell:      doors.Cell{DoorType: doors.DoorMain, Thickness: doors.Thickness250, Component: c},
			Count:     4,
		})
	}
	require.NoError(t, s.SaveRequirements(ctx, reqs))
}

func mainCell(c doors.Component) doors.Cell {
	return doors.Cell{DoorType: doors.DoorMain, Thickness: doors.Thickness250, Component: c}
}

func TestSnapshot_ScopesUnitsAndRequirements(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	l, err := s.Snapshot(context.Background(), scope)
	require.NoError(t, err)

	assert.Len(t, l.Units, 2, "t-B unit must not leak into t-A")
	assert.Len(t, l.Requirements, 3)
	assert.Empty(t, l.Supplied)
	assert.Empty(t, l.Installed)
}

func TestSaveRequirements_Upserts(t *testing.T) {
	s := newStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveRequirements(ctx, []doors.Requirement{{
		ProjectID: scope.ProjectID, TowerID: scope.TowerID, Cell: mainCell(doors.Frames), Count: 10,
	}}))

	l, err := s.Snapshot(ctx, scope)
	require.NoError(t, err)
	require.Len(t, l.Requirements, 3)
	for _, r := range l.Requirements {
		if r.Cell.Component == doors.Frames {
			assert.Equal(t, 10, r.Count)
		}
	}
}

func TestAppendSupply_RoundTripsThroughEngine(t *testing.T) {
	s := newStore(t)
	seed(t, s)
	ctx := context.Background()

	// GIVEN: a plan built against the stored requirements
	l, err := s.Snapshot(ctx, scope)
	require.NoError(t, err)
	plan, err := doors.BuildSupply(doors.NewEngine(l), doors.SupplyProposal{
		Date:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Quantities: map[doors.Cell]int{mainCell(doors.Frames): 3, mainCell(doors.Shutters): 9},
	})
	require.NoError(t, err)

	// WHEN
	require.NoError(t, s.AppendSupply(ctx, plan))

	// THEN: the clamped quantities are what the next snapshot sees
	l, err = s.Snapshot(ctx, scope)
	require.NoError(t, err)
	e := doors.NewEngine(l)
	assert.Equal(t, 3, e.Balance(mainCell(doors.Frames)).Supplied)
	assert.Equal(t, 4, e.Balance(mainCell(doors.Shutters)).Supplied)
	assert.Equal(t, 0, e.Balance(mainCell(doors.Hardwares)).Supplied)
}

func TestAppendInstalled_DuplicateSlotRollsBack(t *testing.T) {
	s := newStore(t)
	seed(t, s)
	ctx := context.Background()

	row := func(id string, c doors.Component) doors.InstalledRecord {
		return doors.InstalledRecord{
			ID:        id,
			ProjectID: scope.ProjectID,
			TowerID:   scope.TowerID,
			UnitID:    "u-101",
			FloorID:   "f-1",
			Cell:      mainCell(c),
			SetNo:     1,
			Quantity:  1,
		}
	}
	require.NoError(t, s.AppendInstalled(ctx, []doors.InstalledRecord{row("i-1", doors.Frames)}))

	// WHEN: a batch whose second row hits an occupied slot
	err := s.AppendInstalled(ctx, []doors.InstalledRecord{
		row("i-2", doors.Shutters),
		row("i-3", doors.Frames),
	})

	// THEN: rejected, and the first row of the batch was not kept
	require.ErrorIs(t, err, doors.ErrDuplicateRecord)
	l, err := s.Snapshot(ctx, scope)
	require.NoError(t, err)
	require.Len(t, l.Installed, 1)
	assert.Equal(t, "i-1", l.Installed[0].ID)
	assert.Equal(t, 1, l.Installed[0].SetNo)
}

func TestTowers(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	towers, err := s.Towers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []doors.Scope{
		{ProjectID: "p-1", TowerID: "t-A"},
		{ProjectID: "p-1", TowerID: "t-B"},
	}, towers)
}

func TestReset(t *testing.T) {
	s := newStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.Reset(ctx))

	l, err := s.Snapshot(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, l.Units)
	assert.Empty(t, l.Requirements)
}
