package doors_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/doorworks/doors"
	"github.com/warp/doorworks/doors/store"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (*doors.Service, *store.Memory) {
	mem := store.NewMemory()
	mem.AddUnits(unit("U1", "3B3T"), unit("U2", "3B3T"))
	for _, c := range doors.AllCells() {
		mem.SetRequirements(required(c, 6))
	}
	return doors.NewService(mem, zaptest.NewLogger(t)), mem
}

func TestService_SupplyThenInstall(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	thick := doors.Thickness100

	// GIVEN: Two Bedroom doors supplied
	proposal := doors.SupplyProposal{Quantities: map[doors.Cell]int{}}
	for _, c := range doors.Components {
		proposal.Quantities[cell(doors.DoorBedroom, thick, c)] = 2
	}
	plan, err := svc.Supply(ctx, testScope, proposal)
	require.NoError(t, err)
	assert.Empty(t, plan.Adjustments)

	// WHEN: Installing one door in each unit
	rows, err := svc.Install(ctx, testScope, doors.NewInstallEntries(
		[]doors.UnitID{"U1", "U2"}, doors.DoorBedroom, thick, allComponents, 1))
	require.NoError(t, err)
	require.Len(t, rows, 6)
	for _, r := range rows {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
	}

	// THEN: A fresh engine sees nothing pending for Bedroom/100mm
	e, err := svc.Engine(ctx, testScope)
	require.NoError(t, err)
	for _, c := range doors.Components {
		assert.Equal(t, 0, e.Pending(cell(doors.DoorBedroom, thick, c)))
		assert.Equal(t, 2, e.Balance(cell(doors.DoorBedroom, thick, c)).Installed)
	}

	// AND: A third install is rejected on supply
	_, err = svc.Install(ctx, testScope, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorBedroom, thick, []doors.Component{doors.Frames}, 1))
	assert.ErrorIs(t, err, doors.ErrInsufficientSupply)
}

func TestService_FailedDispatchLeavesLedgerUnchanged(t *testing.T) {
	_, mem := newTestService(t)
	ctx := context.Background()
	thick := doors.Thickness250
	c := cell(doors.DoorMain, thick, doors.Frames)

	require.NoError(t, mem.AppendSupply(ctx, doors.SupplyPlan{Entries: []doors.SupplyEntry{{
		ProjectID:   testScope.ProjectID,
		TowerID:     testScope.TowerID,
		DoorType:    doors.DoorMain,
		Thicknesses: []doors.ThicknessSupply{{Thickness: thick, Counts: map[doors.Component]int{doors.Frames: 1}}},
	}}}))

	boom := errors.New("connection reset")
	failing := doors.NewService(store.Failing{Store: mem, Err: boom}, nil)

	_, err := failing.Install(ctx, testScope, doors.NewInstallEntries(
		[]doors.UnitID{"U1"}, doors.DoorMain, thick, []doors.Component{doors.Frames}, 1))
	assert.ErrorIs(t, err, doors.ErrBackend)
	assert.ErrorIs(t, err, boom)

	e, err := failing.Engine(ctx, testScope)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Pending(c))
	assert.Equal(t, 0, e.Balance(c).Installed)
}

// blockingStore holds AppendInstalled until released.
type blockingStore struct {
	doors.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) AppendInstalled(ctx context.Context, rows []doors.InstalledRecord) error {
	close(b.entered)
	<-b.release
	return b.Store.AppendInstalled(ctx, rows)
}

func TestService_RejectsOverlappingWritesForSameTower(t *testing.T) {
	_, mem := newTestService(t)
	ctx := context.Background()
	thick := doors.Thickness250
	require.NoError(t, mem.AppendSupply(ctx, doors.SupplyPlan{Entries: []doors.SupplyEntry{{
		ProjectID:   testScope.ProjectID,
		TowerID:     testScope.TowerID,
		DoorType:    doors.DoorMain,
		Thicknesses: []doors.ThicknessSupply{{Thickness: thick, Counts: map[doors.Component]int{doors.Frames: 5}}},
	}}}))

	bs := &blockingStore{Store: mem, entered: make(chan struct{}), release: make(chan struct{})}
	svc := doors.NewService(bs, nil)
	entries := doors.NewInstallEntries([]doors.UnitID{"U1"}, doors.DoorMain, thick, []doors.Component{doors.Frames}, 1)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Install(ctx, testScope, entries)
	}()
	<-bs.entered

	_, err := svc.Install(ctx, testScope, doors.NewInstallEntries([]doors.UnitID{"U2"}, doors.DoorMain, thick, []doors.Component{doors.Frames}, 1))
	assert.ErrorIs(t, err, doors.ErrWriteInFlight)

	close(bs.release)
	wg.Wait()
	assert.NoError(t, firstErr)
}

func TestMemoryStore_RejectsDuplicateSlot(t *testing.T) {
	_, mem := newTestService(t)
	ctx := context.Background()
	row := installed("U1", cell(doors.DoorMain, doors.Thickness250, doors.Frames), 1)

	require.NoError(t, mem.AppendInstalled(ctx, []doors.InstalledRecord{row}))
	err := mem.AppendInstalled(ctx, []doors.InstalledRecord{row})
	assert.ErrorIs(t, err, doors.ErrDuplicateRecord)
}
