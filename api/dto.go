/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  doors domain types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done by package doors, not here. Handlers only parse.
  Unknown door type / thickness / component strings are passed through
  as-is so the builder reports them as IncompleteForm.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/doorworks/doors"
)

const dateLayout = "2006-01-02"

// =============================================================================
// AUTH
// =============================================================================

type SignInRequest struct {
	EmpNo    string `json:"emp_no"`
	Password string `json:"password"`
}

type SessionDTO struct {
	Token     string `json:"token"`
	EmpNo     string `json:"emp_no"`
	ExpiresAt string `json:"expires_at"`
}

// =============================================================================
// MATRICES
// =============================================================================

type BalanceDTO struct {
	DoorType  string `json:"door_type"`
	Thickness string `json:"thickness"`
	Component string `json:"component"`
	Required  int    `json:"required"`
	Supplied  int    `json:"supplied"`
	Installed int    `json:"installed"`
	Pending   int    `json:"pending"`
	Remaining int    `json:"remaining"`
}

// MatrixResponse serves both the pending and the supply views.
type MatrixResponse struct {
	ProjectID string       `json:"project_id"`
	TowerID   string       `json:"tower_id"`
	Fulfilled bool         `json:"fulfilled"`
	Cells     []BalanceDTO `json:"cells"`
}

func toBalanceDTO(b doors.CellBalance) BalanceDTO {
	return BalanceDTO{
		DoorType:  string(b.Cell.DoorType),
		Thickness: string(b.Cell.Thickness),
		Component: string(b.Cell.Component),
		Required:  b.Required,
		Supplied:  b.Supplied,
		Installed: b.Installed,
		Pending:   b.Pending,
		Remaining: b.Remaining,
	}
}

func toMatrixResponse(e *doors.Engine) MatrixResponse {
	scope := e.Ledger().Scope
	m := e.PendingMatrix()
	resp := MatrixResponse{
		ProjectID: string(scope.ProjectID),
		TowerID:   string(scope.TowerID),
		Fulfilled: e.Fulfilled(),
		Cells:     make([]BalanceDTO, 0, len(m.Cells)),
	}
	for _, c := range m.Cells {
		resp.Cells = append(resp.Cells, toBalanceDTO(c))
	}
	return resp
}

// =============================================================================
// UNITS
// =============================================================================

type UnitDTO struct {
	ID      string `json:"id"`
	FloorID string `json:"floor_id"`
	Type    string `json:"type"`
}

type SetDTO struct {
	SetNo      int      `json:"set_no"`
	Components []string `json:"components"`
	Complete   bool     `json:"complete"`
}

type CategoryStateDTO struct {
	Category      string   `json:"category"`
	Applicable    bool     `json:"applicable"`
	Capacity      int      `json:"capacity"`
	CompleteCount int      `json:"complete_count"`
	StartedCount  int      `json:"started_count"`
	AtCapacity    bool     `json:"at_capacity"`
	Sets          []SetDTO `json:"sets"`
	Overflow      []SetDTO `json:"overflow,omitempty"`
}

type UnitStateDTO struct {
	Unit       UnitDTO            `json:"unit"`
	Categories []CategoryStateDTO `json:"categories"`
}

type EligibleResponse struct {
	DoorType  string    `json:"door_type"`
	Thickness string    `json:"thickness"`
	Component string    `json:"component"`
	Pending   int       `json:"pending"`
	Units     []UnitDTO `json:"units"`
}

func toUnitDTO(u doors.Unit) UnitDTO {
	return UnitDTO{ID: string(u.ID), FloorID: string(u.FloorID), Type: u.Type}
}

func toSetDTOs(sets []doors.SetState) []SetDTO {
	out := make([]SetDTO, 0, len(sets))
	for _, s := range sets {
		dto := SetDTO{SetNo: s.SetNo, Complete: s.Complete, Components: []string{}}
		for _, c := range s.Members.Members() {
			dto.Components = append(dto.Components, string(c))
		}
		out = append(out, dto)
	}
	return out
}

func toUnitStateDTO(st doors.UnitState) UnitStateDTO {
	dto := UnitStateDTO{Unit: toUnitDTO(st.Unit)}
	for _, d := range doors.DoorTypes {
		cs := st.Category(d)
		dto.Categories = append(dto.Categories, CategoryStateDTO{
			Category:      string(d),
			Applicable:    cs.Applicable,
			Capacity:      cs.Capacity,
			CompleteCount: cs.CompleteCount,
			StartedCount:  cs.StartedCount,
			AtCapacity:    cs.AtCapacity,
			Sets:          toSetDTOs(cs.Sets),
			Overflow:      toSetDTOs(cs.Overflow),
		})
	}
	return dto
}

// =============================================================================
// INSTALLATION
// =============================================================================

// InstallRequest is the installation form: the same door type, thickness,
// components and quantity applied to every selected unit.
type InstallRequest struct {
	UnitIDs    []string `json:"unit_ids"`
	DoorType   string   `json:"door_type"`
	Thickness  string   `json:"thickness"`
	Components []string `json:"components"`
	Quantity   int      `json:"quantity"`
}

func (r InstallRequest) entries() []doors.InstallEntry {
	units := make([]doors.UnitID, len(r.UnitIDs))
	for i, id := range r.UnitIDs {
		units[i] = doors.UnitID(id)
	}
	comps := make([]doors.Component, len(r.Components))
	for i, c := range r.Components {
		comps[i] = parseComponent(c)
	}
	return doors.NewInstallEntries(units, parseDoorType(r.DoorType), parseThickness(r.Thickness), comps, r.Quantity)
}

type InstalledRecordDTO struct {
	ID        string `json:"id"`
	UnitID    string `json:"unit_id"`
	FloorID   string `json:"floor_id"`
	DoorType  string `json:"door_type"`
	Thickness string `json:"thickness"`
	Component string `json:"component"`
	SetNo     int    `json:"set_no"`
	Quantity  int    `json:"quantity"`
	CreatedAt string `json:"created_at"`
}

type InstallResponse struct {
	Records []InstalledRecordDTO `json:"records"`
}

func toInstallResponse(rows []doors.InstalledRecord) InstallResponse {
	resp := InstallResponse{Records: make([]InstalledRecordDTO, 0, len(rows))}
	for _, r := range rows {
		resp.Records = append(resp.Records, InstalledRecordDTO{
			ID:        r.ID,
			UnitID:    string(r.UnitID),
			FloorID:   string(r.FloorID),
			DoorType:  string(r.Cell.DoorType),
			Thickness: string(r.Cell.Thickness),
			Component: string(r.Cell.Component),
			SetNo:     r.SetNo,
			Quantity:  r.Quantity,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

// =============================================================================
// SUPPLY
// =============================================================================

type SupplyQuantityDTO struct {
	DoorType  string `json:"door_type"`
	Thickness string `json:"thickness"`
	Component string `json:"component"`
	Count     int    `json:"count"`
}

type SupplyRequest struct {
	Date       string              `json:"date"`
	Quantities []SupplyQuantityDTO `json:"quantities"`
}

func (r SupplyRequest) proposal() (doors.SupplyProposal, error) {
	p := doors.SupplyProposal{Quantities: make(map[doors.Cell]int, len(r.Quantities))}
	if r.Date != "" {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return p, err
		}
		p.Date = d
	}
	for _, q := range r.Quantities {
		c := doors.Cell{
			DoorType:  parseDoorType(q.DoorType),
			Thickness: parseThickness(q.Thickness),
			Component: parseComponent(q.Component),
		}
		p.Quantities[c] += q.Count
	}
	return p, nil
}

type ThicknessSupplyDTO struct {
	Thickness string `json:"thickness"`
	Frames    int    `json:"frames"`
	Shutters  int    `json:"shutters"`
	Hardwares int    `json:"hardwares"`
}

type SupplyEntryDTO struct {
	DoorType    string               `json:"door_type"`
	Date        string               `json:"date"`
	Total       int                  `json:"total"`
	Thicknesses []ThicknessSupplyDTO `json:"thicknesses"`
}

type SupplyAdjustmentDTO struct {
	DoorType  string `json:"door_type"`
	Thickness string `json:"thickness"`
	Component string `json:"component"`
	Proposed  int    `json:"proposed"`
	Accepted  int    `json:"accepted"`
	Remaining int    `json:"remaining"`
}

type SupplyResponse struct {
	Entries     []SupplyEntryDTO      `json:"entries"`
	Adjustments []SupplyAdjustmentDTO `json:"adjustments"`
}

func toSupplyResponse(plan doors.SupplyPlan) SupplyResponse {
	resp := SupplyResponse{Entries: []SupplyEntryDTO{}, Adjustments: []SupplyAdjustmentDTO{}}
	for _, e := range plan.Entries {
		dto := SupplyEntryDTO{DoorType: string(e.DoorType), Date: e.Date.Format(dateLayout), Total: e.Total()}
		for _, t := range e.Thicknesses {
			dto.Thicknesses = append(dto.Thicknesses, ThicknessSupplyDTO{
				Thickness: string(t.Thickness),
				Frames:    t.Counts[doors.Frames],
				Shutters:  t.Counts[doors.Shutters],
				Hardwares: t.Counts[doors.Hardwares],
			})
		}
		resp.Entries = append(resp.Entries, dto)
	}
	for _, a := range plan.Adjustments {
		resp.Adjustments = append(resp.Adjustments, SupplyAdjustmentDTO{
			DoorType:  string(a.Cell.DoorType),
			Thickness: string(a.Cell.Thickness),
			Component: string(a.Cell.Component),
			Proposed:  a.Proposed,
			Accepted:  a.Accepted,
			Remaining: a.Remaining,
		})
	}
	return resp
}

// =============================================================================
// PROGRESS
// =============================================================================

type DoorTypeProgressDTO struct {
	DoorType         string          `json:"door_type,omitempty"`
	Required         int             `json:"required"`
	Supplied         int             `json:"supplied"`
	Installed        int             `json:"installed"`
	Pending          int             `json:"pending"`
	SuppliedPercent  decimal.Decimal `json:"supplied_percent"`
	InstalledPercent decimal.Decimal `json:"installed_percent"`
	UtilisedPercent  decimal.Decimal `json:"utilised_percent"`
}

type ProgressDTO struct {
	ProjectID     string                `json:"project_id"`
	TowerID       string                `json:"tower_id"`
	DoorTypes     []DoorTypeProgressDTO `json:"door_types"`
	Overall       DoorTypeProgressDTO   `json:"overall"`
	UnitsComplete int                   `json:"units_complete"`
	UnitsTotal    int                   `json:"units_total"`
}

func toDoorTypeProgressDTO(p doors.DoorTypeProgress) DoorTypeProgressDTO {
	return DoorTypeProgressDTO{
		DoorType:         string(p.DoorType),
		Required:         p.Required,
		Supplied:         p.Supplied,
		Installed:        p.Installed,
		Pending:          p.Pending,
		SuppliedPercent:  p.SuppliedPercent,
		InstalledPercent: p.InstalledPercent,
		UtilisedPercent:  p.UtilisedPercent,
	}
}

func toProgressDTO(p doors.Progress) ProgressDTO {
	dto := ProgressDTO{
		ProjectID:     string(p.Scope.ProjectID),
		TowerID:       string(p.Scope.TowerID),
		Overall:       toDoorTypeProgressDTO(p.Overall),
		UnitsComplete: p.Overall.UnitsComplete,
		UnitsTotal:    p.Overall.UnitsTotal,
	}
	for _, d := range p.DoorTypes {
		dto.DoorTypes = append(dto.DoorTypes, toDoorTypeProgressDTO(d))
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProjectID   string `json:"project_id"`
	TowerID     string `json:"tower_id"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestErrorDTO carries the offending unit and counts of a rejected
// installation or supply.
type RequestErrorDTO struct {
	UnitID    string `json:"unit_id,omitempty"`
	DoorType  string `json:"door_type,omitempty"`
	Thickness string `json:"thickness,omitempty"`
	Component string `json:"component,omitempty"`
	SetNo     int    `json:"set_no,omitempty"`
	Required  int    `json:"required,omitempty"`
	Pending   int    `json:"pending,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

func parseDoorType(s string) doors.DoorType {
	if d, ok := doors.ParseDoorType(s); ok {
		return d
	}
	return doors.DoorType(s)
}

func parseThickness(s string) doors.Thickness {
	if s == "" {
		return ""
	}
	t, _ := doors.ParseThickness(s)
	return t
}

func parseComponent(s string) doors.Component {
	if c, ok := doors.ParseComponent(s); ok {
		return c
	}
	return doors.Component(s)
}
