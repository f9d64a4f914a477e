/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the local SQLite store with a tower in a known state. Each
  scenario is a YAML fixture under fixtures/ describing floors, units,
  requirements, deliveries and installations.

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save units and requirements
 3. Record each delivery through doors.Service.Supply
 4. Record each installation through doors.Service.Install

  Deliveries and installations go through the same validation as the API,
  so a fixture that breaks a rule fails to load.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mid-build"}

ADDING NEW SCENARIOS:
  Drop a new fixtures/<id>.yaml file. It is embedded at build time.

NOTE:
  Scenarios reset the database. Only available with the local store.
*/
package api

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/warp/doorworks/doors"
	"github.com/warp/doorworks/store/sqlite"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// =============================================================================
// FIXTURE FORMAT
// =============================================================================

type Scenario struct {
	ID            string              `yaml:"id"`
	Name          string              `yaml:"name"`
	Description   string              `yaml:"description"`
	ProjectID     string              `yaml:"project_id"`
	TowerID       string              `yaml:"tower_id"`
	Floors        []scenarioFloor     `yaml:"floors"`
	Requirements  []scenarioCells     `yaml:"requirements"`
	Supplies      []scenarioSupply    `yaml:"supplies"`
	Installations []scenarioInstallOp `yaml:"installations"`
}

type scenarioFloor struct {
	ID    string `yaml:"id"`
	Units []struct {
		ID   string `yaml:"id"`
		Type string `yaml:"type"`
	} `yaml:"units"`
}

// scenarioCells is one (door type, thickness) row with a count per component.
type scenarioCells struct {
	DoorType  string `yaml:"door_type"`
	Thickness string `yaml:"thickness"`
	Frames    int    `yaml:"frames"`
	Shutters  int    `yaml:"shutters"`
	Hardwares int    `yaml:"hardwares"`
}

type scenarioSupply struct {
	Date  string          `yaml:"date"`
	Cells []scenarioCells `yaml:"cells"`
}

type scenarioInstallOp struct {
	Units      []string `yaml:"units"`
	DoorType   string   `yaml:"door_type"`
	Thickness  string   `yaml:"thickness"`
	Components []string `yaml:"components"`
	Quantity   int      `yaml:"quantity"`
}

func (c scenarioCells) counts() (map[doors.Cell]int, error) {
	d, ok := doors.ParseDoorType(c.DoorType)
	if !ok {
		return nil, fmt.Errorf("unknown door type %q", c.DoorType)
	}
	t, ok := doors.ParseThickness(c.Thickness)
	if !ok {
		return nil, fmt.Errorf("unknown thickness %q", c.Thickness)
	}
	out := make(map[doors.Cell]int, len(doors.Components))
	for comp, n := range map[doors.Component]int{doors.Frames: c.Frames, doors.Shutters: c.Shutters, doors.Hardwares: c.Hardwares} {
		if n > 0 {
			out[doors.Cell{DoorType: d, Thickness: t, Component: comp}] = n
		}
	}
	return out, nil
}

func (s *Scenario) scope() doors.Scope {
	return doors.Scope{ProjectID: doors.ProjectID(s.ProjectID), TowerID: doors.TowerID(s.TowerID)}
}

// ParseScenario decodes one YAML fixture.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.ID == "" || s.ProjectID == "" || s.TowerID == "" {
		return nil, fmt.Errorf("scenario needs id, project_id and tower_id")
	}
	return &s, nil
}

// LoadScenarios parses every embedded fixture, sorted by ID.
func LoadScenarios() ([]*Scenario, error) {
	entries, err := fixtureFS.ReadDir("fixtures")
	if err != nil {
		return nil, err
	}
	var out []*Scenario
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fixtureFS.ReadFile(path.Join("fixtures", e.Name()))
		if err != nil {
			return nil, err
		}
		s, err := ParseScenario(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func findScenario(id string) (*Scenario, error) {
	all, err := LoadScenarios()
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

// =============================================================================
// LOADER
// =============================================================================

// Apply resets the store and replays the scenario through svc.
func (s *Scenario) Apply(ctx context.Context, store *sqlite.Store, svc *doors.Service) error {
	scope := s.scope()

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	var units []doors.Unit
	for _, f := range s.Floors {
		for _, u := range f.Units {
			units = append(units, doors.Unit{
				ID:        doors.UnitID(u.ID),
				ProjectID: scope.ProjectID,
				TowerID:   scope.TowerID,
				FloorID:   doors.FloorID(f.ID),
				Type:      u.Type,
			})
		}
	}
	if err := store.SaveUnits(ctx, units); err != nil {
		return err
	}

	var reqs []doors.Requirement
	for _, row := range s.Requirements {
		counts, err := row.counts()
		if err != nil {
			return fmt.Errorf("requirements: %w", err)
		}
		for c, n := range counts {
			reqs = append(reqs, doors.Requirement{ProjectID: scope.ProjectID, TowerID: scope.TowerID, Cell: c, Count: n})
		}
	}
	if err := store.SaveRequirements(ctx, reqs); err != nil {
		return err
	}

	for i, sup := range s.Supplies {
		p := doors.SupplyProposal{Quantities: make(map[doors.Cell]int)}
		if sup.Date != "" {
			d, err := time.Parse(dateLayout, sup.Date)
			if err != nil {
				return fmt.Errorf("supply %d: %w", i+1, err)
			}
			p.Date = d
		}
		for _, row := range sup.Cells {
			counts, err := row.counts()
			if err != nil {
				return fmt.Errorf("supply %d: %w", i+1, err)
			}
			for c, n := range counts {
				p.Quantities[c] += n
			}
		}
		if _, err := svc.Supply(ctx, scope, p); err != nil {
			return fmt.Errorf("supply %d: %w", i+1, err)
		}
	}

	for i, op := range s.Installations {
		req := InstallRequest{
			UnitIDs:    op.Units,
			DoorType:   op.DoorType,
			Thickness:  op.Thickness,
			Components: op.Components,
			Quantity:   op.Quantity,
		}
		if _, err := svc.Install(ctx, scope, req.entries()); err != nil {
			return fmt.Errorf("installation %d: %w", i+1, err)
		}
	}
	return nil
}

// =============================================================================
// ENDPOINTS
// =============================================================================

func toScenarioDTO(s *Scenario) ScenarioDTO {
	return ScenarioDTO{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		ProjectID:   s.ProjectID,
		TowerID:     s.TowerID,
	}
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all, err := LoadScenarios()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal", "Failed to read scenarios", err)
		return
	}
	out := make([]ScenarioDTO, 0, len(all))
	for _, s := range all {
		out = append(out, toScenarioDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	id := h.currentScenario
	h.mu.Unlock()

	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := findScenario(id)
	if err != nil || s == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toScenarioDTO(s))
}

// LoadScenario resets the local store and loads a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Local == nil {
		writeError(w, r, http.StatusNotImplemented, "NotAvailable", "Scenarios need the local store", nil)
		return
	}

	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := findScenario(req.ScenarioID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal", "Failed to read scenarios", err)
		return
	}
	if s == nil {
		writeError(w, r, http.StatusNotFound, "NotFound", "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	if err := s.Apply(r.Context(), h.Local, h.Service); err != nil {
		h.Logger.Error("scenario load failed", zap.String("scenario", s.ID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Internal", "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", zap.String("scenario", s.ID))
	writeJSON(w, http.StatusOK, toScenarioDTO(s))
}
