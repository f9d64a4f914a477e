/*
handlers.go - HTTP API handlers for door supply and installation tracking

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response and JSON serialization; every rule lives in package
  doors.

ENDPOINTS:
  Auth:
    POST   /api/auth/signin                 Open a session
    POST   /api/auth/signout                Close the session

  Towers (/api/projects/{projectID}/towers/{towerID}):
    GET    /pending                         Pending matrix (36 cells)
    GET    /units/{unitID}/state            Per-category set state
    GET    /eligible                        Units a pending cell can go to
    POST   /installations                   Record an installation
    GET    /supply                          Requirement vs supplied matrix
    POST   /supplies                        Record a supply delivery
    GET    /progress                        Report totals and percentages

  Scenarios (session required; load wipes the local store):
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Call doors.Service (snapshot, derive, validate, append)
  3. Serialize response
  4. Map errors to status

ERROR HANDLING:
  - 400: Form and business-rule errors (doors.IsClientError)
  - 401: No session, expired session, backend rejected token
  - 409: Tower fulfilled, write in flight, duplicate record
  - 502: Backend failure
  - 500: Anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warp/doorworks/client"
	"github.com/warp/doorworks/doors"
	"github.com/warp/doorworks/session"
	"github.com/warp/doorworks/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Authenticator exchanges credentials for a token. client.Client signs in
// against the backend; session.Issuer signs tokens locally.
type Authenticator interface {
	SignIn(ctx context.Context, empNo, password string) (token, employeeID string, err error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *doors.Service
	Auth     Authenticator
	Sessions *session.Manager
	Logger   *zap.Logger

	// Local is set when the ledgers live in SQLite. Scenarios need it.
	Local *sqlite.Store

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. local may be nil in remote mode.
func NewHandler(svc *doors.Service, auth Authenticator, sessions *session.Manager, local *sqlite.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:  svc,
		Auth:     auth,
		Sessions: sessions,
		Local:    local,
		Logger:   logger,
	}
}

func scopeFrom(r *http.Request) doors.Scope {
	return doors.Scope{
		ProjectID: doors.ProjectID(chi.URLParam(r, "projectID")),
		TowerID:   doors.TowerID(chi.URLParam(r, "towerID")),
	}
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// SignIn opens a session.
// POST /api/auth/signin
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EmpNo == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "IncompleteForm", "emp_no and password are required", nil)
		return
	}

	token, emp, err := h.Auth.SignIn(r.Context(), req.EmpNo, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	s := h.Sessions.Open(token, emp)

	h.Logger.Info("signed in", zap.String("emp_no", emp), zap.Time("expires_at", s.ExpiresAt))
	writeJSON(w, http.StatusOK, SessionDTO{
		Token:     s.Token,
		EmpNo:     s.EmployeeID,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	})
}

// SignOut closes the caller's session.
// POST /api/auth/signout
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if s, ok := session.FromContext(r.Context()); ok {
		h.Sessions.Close(s.Token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TOWER ENDPOINTS
// =============================================================================

// GetPending returns the pending matrix.
// GET /api/projects/{projectID}/towers/{towerID}/pending
func (h *Handler) GetPending(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Engine(r.Context(), scopeFrom(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatrixResponse(e))
}

// GetSupply returns the matrix the supply form is built from. Same cells
// as pending; the form reads Required and Remaining.
// GET /api/projects/{projectID}/towers/{towerID}/supply
func (h *Handler) GetSupply(w http.ResponseWriter, r *http.Request) {
	h.GetPending(w, r)
}

// GetUnitState returns one unit's sets per category.
// GET /api/projects/{projectID}/towers/{towerID}/units/{unitID}/state
func (h *Handler) GetUnitState(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Engine(r.Context(), scopeFrom(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	st, err := e.UnitState(doors.UnitID(chi.URLParam(r, "unitID")))
	if err != nil {
		writeError(w, r, http.StatusNotFound, string(doors.CodeUnknownUnit), "unit not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitStateDTO(st))
}

// GetEligible lists units a pending cell can be installed into.
// GET /api/projects/{projectID}/towers/{towerID}/eligible?door_type=&thickness=&component=
func (h *Handler) GetEligible(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cell := doors.Cell{
		DoorType:  parseDoorType(q.Get("door_type")),
		Thickness: parseThickness(q.Get("thickness")),
		Component: parseComponent(q.Get("component")),
	}
	if !cell.DoorType.Valid() || !cell.Thickness.Valid() || !cell.Component.Valid() {
		writeError(w, r, http.StatusBadRequest, string(doors.CodeIncompleteForm), "door_type, thickness and component are required", nil)
		return
	}

	e, err := h.Service.Engine(r.Context(), scopeFrom(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := EligibleResponse{
		DoorType:  string(cell.DoorType),
		Thickness: string(cell.Thickness),
		Component: string(cell.Component),
		Pending:   e.Pending(cell),
		Units:     []UnitDTO{},
	}
	for _, u := range e.UnitsEligibleFor(cell.DoorType, cell.Thickness, cell.Component) {
		resp.Units = append(resp.Units, toUnitDTO(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateInstallation validates and records an installation.
// POST /api/projects/{projectID}/towers/{towerID}/installations
func (h *Handler) CreateInstallation(w http.ResponseWriter, r *http.Request) {
	var req InstallRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rows, err := h.Service.Install(r.Context(), scopeFrom(r), req.entries())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInstallResponse(rows))
}

// CreateSupply clamps and records a supply delivery.
// POST /api/projects/{projectID}/towers/{towerID}/supplies
func (h *Handler) CreateSupply(w http.ResponseWriter, r *http.Request) {
	var req SupplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	proposal, err := req.proposal()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, string(doors.CodeIncompleteForm), "date must be YYYY-MM-DD", err)
		return
	}

	plan, err := h.Service.Supply(r.Context(), scopeFrom(r), proposal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSupplyResponse(plan))
}

// GetProgress returns report totals.
// GET /api/projects/{projectID}/towers/{towerID}/progress
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Engine(r.Context(), scopeFrom(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(e.Progress()))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	resp := ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	}
	switch d := details.(type) {
	case nil:
	case error:
		resp.Details = d.Error()
	default:
		resp.Details = d
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest", "Invalid request body", err)
		return false
	}
	return true
}

// writeDomainError maps errors from doors, client and session to a status.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *doors.RequestError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, r, http.StatusBadRequest, string(reqErr.Code), reqErr.Message, requestErrorDetails(reqErr))

	case errors.Is(err, client.ErrUnauthorized),
		errors.Is(err, client.ErrNoSession),
		errors.Is(err, session.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "Sign in again", err)

	case errors.Is(err, doors.ErrTowerFulfilled):
		writeError(w, r, http.StatusConflict, "TowerFulfilled", "Tower supply is fulfilled", err)
	case errors.Is(err, doors.ErrWriteInFlight):
		writeError(w, r, http.StatusConflict, "WriteInFlight", "Another submission for this tower is in progress", err)
	case errors.Is(err, doors.ErrDuplicateRecord):
		writeError(w, r, http.StatusConflict, "DuplicateRecord", "Already recorded; reload and try again", err)

	case errors.Is(err, doors.ErrBackend):
		h.Logger.Error("backend failure",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, http.StatusBadGateway, "BackendUnavailable", "Backend request failed", err)

	default:
		h.Logger.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Internal", "Internal error", err)
	}
}

func requestErrorDetails(e *doors.RequestError) RequestErrorDTO {
	d := RequestErrorDTO{
		UnitID:   string(e.UnitID),
		SetNo:    e.SetNo,
		Required: e.Required,
		Pending:  e.Pending,
	}
	if e.Cell != nil {
		d.DoorType = string(e.Cell.DoorType)
		d.Thickness = string(e.Cell.Thickness)
		d.Component = string(e.Cell.Component)
	}
	return d
}
