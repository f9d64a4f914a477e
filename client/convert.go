package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/doorworks/doors"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// parseCell maps the backend's Door_Type / Door_Type_MM / Type strings.
func parseCell(doorType, mm, component string) (doors.Cell, error) {
	d, ok := doors.ParseDoorType(doorType)
	if !ok {
		return doors.Cell{}, fmt.Errorf("unknown door type %q", doorType)
	}
	t, ok := doors.ParseThickness(mm)
	if !ok {
		return doors.Cell{}, fmt.Errorf("unknown thickness %q", mm)
	}
	c, ok := doors.ParseComponent(component)
	if !ok {
		return doors.Cell{}, fmt.Errorf("unknown component %q", component)
	}
	return doors.Cell{DoorType: d, Thickness: t, Component: c}, nil
}

// thicknessLabel is the backend spelling, e.g. "250 MM".
func thicknessLabel(t doors.Thickness) string {
	return strings.ToUpper(strings.TrimSuffix(string(t), "mm")) + " MM"
}

// ledgerFromWire builds the snapshot for one tower out of the employee's
// tasks and the project's supply rows. Supplied totals come only from
// supply rows; Supplied_Doors on tasks repeats them. Rows naming a door
// type, thickness or component outside the enumeration are logged and
// skipped.
func ledgerFromWire(scope doors.Scope, tasks []taskWire, supply []supplyWire, logger *zap.Logger) doors.Ledger {
	l := doors.Ledger{Scope: scope}
	seen := make(map[doors.UnitID]bool)

	for _, task := range tasks {
		if doors.ProjectID(task.ProjectID) != scope.ProjectID || doors.TowerID(task.TowerID) != scope.TowerID {
			continue
		}
		for _, f := range task.FloorsInfo {
			for _, u := range f.Units {
				id := doors.UnitID(u.UnitID)
				if seen[id] {
					continue
				}
				seen[id] = true
				l.Units = append(l.Units, doors.Unit{
					ID:        id,
					ProjectID: scope.ProjectID,
					TowerID:   scope.TowerID,
					FloorID:   doors.FloorID(f.FloorID),
					Type:      u.UnitType,
				})
			}
		}
		for _, r := range task.InstalledDoors {
			c, err := parseCell(r.DoorType, r.DoorTypeMM, r.Type)
			if err != nil {
				logger.Warn("skipping installed door",
					zap.String("record_id", r.RecordID),
					zap.String("unit_id", r.UnitID),
					zap.Error(err),
				)
				continue
			}
			created, _ := time.Parse(time.RFC3339, r.CreatedAt)
			l.Installed = append(l.Installed, doors.InstalledRecord{
				ID:        r.RecordID,
				ProjectID: scope.ProjectID,
				TowerID:   scope.TowerID,
				UnitID:    doors.UnitID(r.UnitID),
				FloorID:   doors.FloorID(r.FloorID),
				Cell:      c,
				SetNo:     r.SetNo,
				Quantity:  r.Units,
				CreatedAt: created,
			})
		}
	}

	for _, r := range supply {
		if doors.TowerID(r.TowerID) != scope.TowerID {
			continue
		}
		c, err := parseCell(r.DoorType, r.DoorTypeMM, r.Type)
		if err != nil {
			logger.Warn("skipping supply row",
				zap.String("tower_id", r.TowerID),
				zap.Error(err),
			)
			continue
		}
		if r.Required > 0 {
			l.Requirements = append(l.Requirements, doors.Requirement{
				ProjectID: scope.ProjectID, TowerID: scope.TowerID, Cell: c, Count: r.Required,
			})
		}
		if r.TotalCount > 0 {
			l.Supplied = append(l.Supplied, doors.SuppliedRecord{
				ProjectID: scope.ProjectID, TowerID: scope.TowerID, Cell: c, Count: r.TotalCount,
			})
		}
	}
	return l
}

func installedToWire(rows []doors.InstalledRecord) []installedWire {
	out := make([]installedWire, len(rows))
	for i, r := range rows {
		out[i] = installedWire{
			RecordID:   r.ID,
			ProjectID:  string(r.ProjectID),
			TowerID:    string(r.TowerID),
			FloorID:    string(r.FloorID),
			UnitID:     string(r.UnitID),
			DoorType:   string(r.Cell.DoorType),
			DoorTypeMM: thicknessLabel(r.Cell.Thickness),
			Type:       string(r.Cell.Component),
			SetNo:      r.SetNo,
			Units:      max(r.Quantity, 1),
		}
		if !r.CreatedAt.IsZero() {
			out[i].CreatedAt = r.CreatedAt.Format(time.RFC3339)
		}
	}
	return out
}

func supplyToWire(plan doors.SupplyPlan) []supplyEntryWire {
	out := make([]supplyEntryWire, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		w := supplyEntryWire{
			ProjectID:    string(e.ProjectID),
			TowerID:      string(e.TowerID),
			DoorType:     string(e.DoorType),
			SuppliedDate: e.Date.Format(dateLayout),
			TotalCount:   e.Total(),
		}
		for _, t := range e.Thicknesses {
			w.Thicknesses = append(w.Thicknesses, thicknessWire{
				DoorTypeMM: thicknessLabel(t.Thickness),
				Frames:     t.Counts[doors.Frames],
				Shutters:   t.Counts[doors.Shutters],
				Hardwares:  t.Counts[doors.Hardwares],
			})
		}
		out = append(out, w)
	}
	return out
}
