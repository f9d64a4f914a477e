package doors_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/doorworks/doors"
)

var allComponents = []doors.Component{doors.Frames, doors.Shutters, doors.Hardwares}

func requestErr(t *testing.T, err error) *doors.RequestError {
	t.Helper()
	var reqErr *doors.RequestError
	require.True(t, errors.As(err, &reqErr), "expected *RequestError, got %v", err)
	return reqErr
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestBuild_ScenarioA_FirstBedroomSet(t *testing.T) {
	// GIVEN: U1 (3B3T) with nothing installed and supply for every component
	e := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, doors.Thickness100, 1)...).
		engine()

	// WHEN: Installing one full Bedroom door
	rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, doors.Thickness100, allComponents, 1))

	// THEN: Three rows, all set 1
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, 1, r.SetNo)
		assert.Equal(t, 1, r.Quantity)
		assert.Equal(t, doors.UnitID("U1"), r.UnitID)
		assert.Equal(t, doors.FloorID("f-1"), r.FloorID)
		assert.Equal(t, allComponents[i], r.Cell.Component)
	}
}

func TestBuild_ScenarioB_FillIncompleteSetThenDuplicate(t *testing.T) {
	// GIVEN: U1 Bedroom set 1 with Frames installed
	thick := doors.Thickness100
	e := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, thick, 5)...).
		install(installed("U1", cell(doors.DoorBedroom, thick, doors.Frames), 1)).
		engine()

	// WHEN: Adding Shutters
	rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, thick, []doors.Component{doors.Shutters}, 1))

	// THEN: One row targeting set 1
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].SetNo)
	assert.Equal(t, doors.Shutters, rows[0].Cell.Component)

	// WHEN: Adding Frames again
	rows, err = doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, thick, []doors.Component{doors.Frames}, 1))

	// THEN: DuplicateComponent, no payload
	assert.ErrorIs(t, err, doors.ErrDuplicateComponent)
	assert.Nil(t, rows)
	re := requestErr(t, err)
	assert.Equal(t, doors.CodeDuplicateComponent, re.Code)
	assert.Equal(t, doors.UnitID("U1"), re.UnitID)
	assert.Equal(t, 1, re.SetNo)
}

func TestBuild_ScenarioC_ThreeCompleteBedroomSets(t *testing.T) {
	thick := doors.Thickness150
	b := newLedger(unit("U1", "3B3T")).supply(supplyAll(doors.DoorBedroom, thick, 10)...)
	for no := 1; no <= 3; no++ {
		b.install(completeSet("U1", doors.DoorBedroom, thick, no)...)
	}
	e := b.engine()

	rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, thick, allComponents, 1))

	assert.ErrorIs(t, err, doors.ErrCapacityExceeded)
	assert.Nil(t, rows)
}

func TestBuild_ScenarioD_InsufficientSupply(t *testing.T) {
	// GIVEN: pending(Main, 250mm, Frames) = 2, three units
	c := cell(doors.DoorMain, doors.Thickness250, doors.Frames)
	e := newLedger(unit("U1", "3B3T"), unit("U2", "3B3T"), unit("U3", "3B3T")).
		supply(supplied(c, 2)).
		engine()
	require.Equal(t, 2, e.Pending(c))

	// WHEN: Requesting 3 Main Frames
	rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1", "U2", "U3"}, doors.DoorMain, doors.Thickness250, []doors.Component{doors.Frames}, 1))

	// THEN: InsufficientSupply with required=3, pending=2
	assert.Nil(t, rows)
	re := requestErr(t, err)
	assert.Equal(t, doors.CodeInsufficientSupply, re.Code)
	assert.Equal(t, 3, re.Required)
	assert.Equal(t, 2, re.Pending)
	require.NotNil(t, re.Cell)
	assert.Equal(t, c, *re.Cell)
}

func TestBuild_ScenarioD_SingleEntryQuantity(t *testing.T) {
	c := cell(doors.DoorBedroom, doors.Thickness250, doors.Frames)
	e := newLedger(unit("U1", "3B3T")).supply(supplied(c, 2)).engine()

	_, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, doors.Thickness250, []doors.Component{doors.Frames}, 3))

	re := requestErr(t, err)
	assert.Equal(t, doors.CodeInsufficientSupply, re.Code)
	assert.Equal(t, 3, re.Required)
	assert.Equal(t, 2, re.Pending)
}

// =============================================================================
// SET RESOLUTION
// =============================================================================

func TestBuild_NewSetsGetDistinctNumbers(t *testing.T) {
	thick := doors.Thickness100
	e := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, thick, 10)...).
		install(completeSet("U1", doors.DoorBedroom, thick, 1)...).
		engine()

	rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, thick, []doors.Component{doors.Frames, doors.Shutters}, 2))

	require.NoError(t, err)
	require.Len(t, rows, 4)
	sets := map[int]int{}
	for _, r := range rows {
		sets[r.SetNo]++
	}
	assert.Equal(t, map[int]int{2: 2, 3: 2}, sets)
}

func TestBuild_NewSetsExceedingCapacity(t *testing.T) {
	thick := doors.Thickness100
	e := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, thick, 10)...).
		install(completeSet("U1", doors.DoorBedroom, thick, 1)...).
		engine()

	_, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, thick, allComponents, 3))

	re := requestErr(t, err)
	assert.Equal(t, doors.CodeCapacityExceeded, re.Code)
	assert.Equal(t, 3, re.Required)
	assert.Equal(t, 2, re.Pending)
}

func TestBuild_HugeQuantityIsCapacityExceeded(t *testing.T) {
	// GIVEN: U1 with one complete Bedroom set, U2 with none
	thick := doors.Thickness100
	e := newLedger(unit("U1", "3B3T"), unit("U2", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, thick, 10)...).
		install(completeSet("U1", doors.DoorBedroom, thick, 1)...).
		engine()

	for _, u := range []doors.UnitID{"U1", "U2"} {
		// WHEN: Asking for MaxInt new sets
		rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
			[]doors.UnitID{u}, doors.DoorBedroom, thick, allComponents, math.MaxInt))

		// THEN: Rejected on capacity, not a panic or a wrapped sum
		assert.ErrorIs(t, err, doors.ErrCapacityExceeded, "unit %s", u)
		assert.Nil(t, rows)
		re := requestErr(t, err)
		assert.Equal(t, math.MaxInt, re.Required)
	}
}

func TestBuild_BatchPendingCheckedPerRemainder(t *testing.T) {
	// GIVEN: pending(Bedroom, 100mm, Frames) = 3
	c := cell(doors.DoorBedroom, doors.Thickness100, doors.Frames)
	e := newLedger(unit("U1", "3B3T"), unit("U2", "3B3T")).supply(supplied(c, 3)).engine()

	// WHEN: 2 sets for U1 then 2 sets for U2 in one batch
	rows, err := doors.BuildInstallation(e, []doors.InstallEntry{
		{UnitID: "U1", DoorType: doors.DoorBedroom, Thickness: doors.Thickness100, Components: []doors.Component{doors.Frames}, Quantity: 2},
		{UnitID: "U2", DoorType: doors.DoorBedroom, Thickness: doors.Thickness100, Components: []doors.Component{doors.Frames}, Quantity: 2},
	})

	// THEN: Only one frame left for U2
	assert.Nil(t, rows)
	re := requestErr(t, err)
	assert.Equal(t, doors.CodeInsufficientSupply, re.Code)
	assert.Equal(t, doors.UnitID("U2"), re.UnitID)
	assert.Equal(t, 4, re.Required)
	assert.Equal(t, 3, re.Pending)
}

func TestBuild_IncompleteSetAcceptsOtherThickness(t *testing.T) {
	// GIVEN: Bedroom set 1 started with a 150mm Frame
	e := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, doors.Thickness250, 1)...).
		install(installed("U1", cell(doors.DoorBedroom, doors.Thickness150, doors.Frames), 1)).
		engine()

	// WHEN: Adding a 250mm Shutter
	rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, doors.Thickness250, []doors.Component{doors.Shutters}, 1))

	// THEN: It joins set 1; sets are tracked per category
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].SetNo)
	assert.Equal(t, doors.Thickness250, rows[0].Cell.Thickness)
}

func TestBuild_IncompleteSetRequiresQuantityOne(t *testing.T) {
	thick := doors.Thickness100
	e := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, thick, 10)...).
		install(installed("U1", cell(doors.DoorBedroom, thick, doors.Frames), 1)).
		engine()

	_, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, thick, []doors.Component{doors.Shutters}, 2))

	assert.ErrorIs(t, err, doors.ErrConflictingBatchSize)
}

func TestBuild_MainAlwaysSetOne(t *testing.T) {
	thick := doors.Thickness250
	e := newLedger(unit("U1", "3B3T")).supply(supplyAll(doors.DoorMain, thick, 5)...).engine()

	rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorMain, thick, []doors.Component{doors.Frames}, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].SetNo)

	_, err = doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorMain, thick, allComponents, 2))
	assert.ErrorIs(t, err, doors.ErrCapacityExceeded)
}

func TestBuild_MainCompleteRejectsFurtherSets(t *testing.T) {
	thick := doors.Thickness250
	e := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorMain, thick, 5)...).
		install(completeSet("U1", doors.DoorMain, thick, 1)...).
		engine()

	_, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorMain, thick, []doors.Component{doors.Frames}, 1))
	assert.ErrorIs(t, err, doors.ErrCapacityExceeded)
}

func TestBuild_SameUnitTwiceInBatchSeesEarlierRows(t *testing.T) {
	// GIVEN: An empty unit
	thick := doors.Thickness100
	e := newLedger(unit("U1", "3B3T")).supply(supplyAll(doors.DoorBedroom, thick, 10)...).engine()

	// WHEN: First entry starts set 1 with Frames, second adds Frames again
	entries := []doors.InstallEntry{
		{UnitID: "U1", DoorType: doors.DoorBedroom, Thickness: thick, Components: []doors.Component{doors.Frames}, Quantity: 1},
		{UnitID: "U1", DoorType: doors.DoorBedroom, Thickness: thick, Components: []doors.Component{doors.Frames}, Quantity: 1},
	}
	_, err := doors.BuildInstallation(e, entries)

	// THEN: The second entry targets the now-incomplete set 1 and is a duplicate
	assert.ErrorIs(t, err, doors.ErrDuplicateComponent)

	// WHEN: Second entry completes it instead
	entries[1].Components = []doors.Component{doors.Shutters, doors.Hardwares}
	rows, err := doors.BuildInstallation(e, entries)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, 1, r.SetNo)
	}
}

func TestBuild_CategoryNotApplicable(t *testing.T) {
	thick := doors.Thickness100
	e := newLedger(unit("O1", "Office")).supply(supplyAll(doors.DoorBedroom, thick, 5)...).engine()

	_, err := doors.BuildInstallation(e, doors.NewInstallEntries(
		[]doors.UnitID{"O1"}, doors.DoorBedroom, thick, allComponents, 1))
	assert.ErrorIs(t, err, doors.ErrCategoryNotApplicable)
}

// =============================================================================
// FORM ERRORS
// =============================================================================

func TestBuild_FormErrors(t *testing.T) {
	e := newLedger(unit("U1", "3B3T")).supply(supplyAll(doors.DoorBedroom, doors.Thickness100, 5)...).engine()
	valid := doors.InstallEntry{
		UnitID: "U1", DoorType: doors.DoorBedroom, Thickness: doors.Thickness100,
		Components: []doors.Component{doors.Frames}, Quantity: 1,
	}

	tests := []struct {
		name   string
		mutate func(*doors.InstallEntry)
		want   error
	}{
		{"missing door type", func(e *doors.InstallEntry) { e.DoorType = "" }, doors.ErrIncompleteForm},
		{"missing thickness", func(e *doors.InstallEntry) { e.Thickness = "" }, doors.ErrIncompleteForm},
		{"no components", func(e *doors.InstallEntry) { e.Components = nil }, doors.ErrIncompleteForm},
		{"bad component", func(e *doors.InstallEntry) { e.Components = []doors.Component{"Hinges"} }, doors.ErrIncompleteForm},
		{"zero quantity", func(e *doors.InstallEntry) { e.Quantity = 0 }, doors.ErrIncompleteForm},
		{"negative quantity", func(e *doors.InstallEntry) { e.Quantity = -1 }, doors.ErrIncompleteForm},
		{"no unit", func(e *doors.InstallEntry) { e.UnitID = "" }, doors.ErrNoUnitsSelected},
		{"unknown unit", func(e *doors.InstallEntry) { e.UnitID = "U404" }, doors.ErrUnknownUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid
			tt.mutate(&entry)
			rows, err := doors.BuildInstallation(e, []doors.InstallEntry{entry})
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, rows)
		})
	}

	_, err := doors.BuildInstallation(e, nil)
	assert.ErrorIs(t, err, doors.ErrNoUnitsSelected)
	assert.True(t, doors.IsFormError(err))
	assert.True(t, doors.IsClientError(err))
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestBuild_NeverExceedsPending(t *testing.T) {
	// Every emitted payload fits inside the pending counts computed before
	// the call, for a spread of batch sizes.
	thick := doors.Thickness200
	for pending := 0; pending <= 4; pending++ {
		for units := 1; units <= 4; units++ {
			var us []doors.Unit
			var ids []doors.UnitID
			for i := 0; i < units; i++ {
				id := string(rune('A' + i))
				us = append(us, unit(id, "3B3T"))
				ids = append(ids, doors.UnitID(id))
			}
			e := newLedger(us...).supply(supplyAll(doors.DoorBedroom, thick, pending)...).engine()

			rows, err := doors.BuildInstallation(e, doors.NewInstallEntries(ids, doors.DoorBedroom, thick, allComponents, 1))
			if err != nil {
				assert.ErrorIs(t, err, doors.ErrInsufficientSupply)
				assert.Greater(t, units, pending)
				continue
			}
			perCell := map[doors.Cell]int{}
			for _, r := range rows {
				perCell[r.Cell] += r.Quantity
			}
			for c, n := range perCell {
				assert.LessOrEqual(t, n, e.Pending(c))
			}
		}
	}
}

func TestBuild_ReplayedRowsKeepCapacityInvariant(t *testing.T) {
	// Feeding builder output back into the ledger never breaks the
	// per-unit ceilings.
	thick := doors.Thickness100
	b := newLedger(unit("U1", "3B3T")).
		supply(supplyAll(doors.DoorBedroom, thick, 10)...).
		supply(supplyAll(doors.DoorMain, thick, 10)...)

	for i := 0; i < 5; i++ {
		for _, d := range []doors.DoorType{doors.DoorMain, doors.DoorBedroom} {
			rows, err := doors.BuildInstallation(b.engine(), doors.NewInstallEntries(
				[]doors.UnitID{"U1"}, d, thick, allComponents, 1))
			if err == nil {
				b.install(rows...)
			}
		}
	}

	st, err := b.engine().UnitState("U1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Category(doors.DoorMain).CompleteCount)
	assert.Equal(t, 3, st.Category(doors.DoorBedroom).CompleteCount)
	assert.LessOrEqual(t, st.Category(doors.DoorBedroom).StartedCount, 3)
	assert.True(t, st.Category(doors.DoorBedroom).AtCapacity)
}
