package doors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/doorworks/doors"
)

func TestProgress_Percentages(t *testing.T) {
	thick := doors.Thickness250
	frames := cell(doors.DoorMain, thick, doors.Frames)
	e := newLedger(unit("U1", "3B3T"), unit("U2", "3B3T"), unit("U3", "3B3T")).
		require(required(frames, 3)).
		supply(supplied(frames, 2)).
		install(installed("U1", frames, 1)).
		engine()

	p := e.Progress()
	require.Len(t, p.DoorTypes, 3)

	main := p.DoorTypes[0]
	assert.Equal(t, doors.DoorMain, main.DoorType)
	assert.Equal(t, "66.67", main.SuppliedPercent.StringFixed(2))
	assert.Equal(t, "33.33", main.InstalledPercent.StringFixed(2))
	assert.Equal(t, "50", main.UtilisedPercent.String())

	office := p.DoorTypes[2]
	assert.True(t, office.SuppliedPercent.IsZero(), "zero requirement gives zero percent")

	assert.Equal(t, 3, p.Overall.UnitsTotal)
	assert.Equal(t, 0, p.Overall.UnitsComplete)
}

func TestProgress_UnitsComplete(t *testing.T) {
	thick := doors.Thickness100
	b := newLedger(unit("U1", "3B3T"), unit("O1", "Office")).
		install(completeSet("U1", doors.DoorMain, thick, 1)...)
	for no := 1; no <= 3; no++ {
		b.install(completeSet("U1", doors.DoorBedroom, thick, no)...)
	}

	p := b.engine().Progress()
	assert.Equal(t, 1, p.Overall.UnitsComplete)
	assert.Equal(t, 2, p.Overall.UnitsTotal)
}
