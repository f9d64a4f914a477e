/*
service.go - Request orchestration over a Store

PURPOSE:
  Runs the fetch -> derive -> validate -> dispatch cycle for one request:

    1. Snapshot the scope from the Store
    2. Build an Engine over the snapshot
    3. Validate with BuildInstallation / BuildSupply
    4. Append the payload

  Nothing is cached between calls and nothing is applied locally before
  the Store accepts it, so a failed append leaves every derived view
  unchanged.

IN-FLIGHT GUARD:
  Only one write per tower is dispatched at a time from this process.
  A second write for the same scope while one is running fails fast
  with ErrWriteInFlight. There is no cross-process locking.
*/
package doors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	inFlight map[Scope]bool
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		inFlight: make(map[Scope]bool),
	}
}

// Engine snapshots a scope and indexes it.
func (s *Service) Engine(ctx context.Context, scope Scope) (*Engine, error) {
	ledger, err := s.store.Snapshot(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot %s/%s: %w", ErrBackend, scope.ProjectID, scope.TowerID, err)
	}
	ledger.Scope = scope
	return NewEngine(ledger), nil
}

// Install validates entries against a fresh snapshot and appends the rows.
func (s *Service) Install(ctx context.Context, scope Scope, entries []InstallEntry) ([]InstalledRecord, error) {
	release, err := s.acquire(scope)
	if err != nil {
		return nil, err
	}
	defer release()

	engine, err := s.Engine(ctx, scope)
	if err != nil {
		return nil, err
	}

	rows, err := BuildInstallation(engine, entries)
	if err != nil {
		s.logger.Info("installation rejected",
			zap.String("project_id", string(scope.ProjectID)),
			zap.String("tower_id", string(scope.TowerID)),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.now()
	for i := range rows {
		rows[i].ID = uuid.NewString()
		rows[i].CreatedAt = now
	}

	if err := s.store.AppendInstalled(ctx, rows); err != nil {
		s.logger.Warn("installation dispatch failed",
			zap.String("tower_id", string(scope.TowerID)),
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: append installed: %w", ErrBackend, err)
	}

	s.logger.Debug("installation recorded",
		zap.String("tower_id", string(scope.TowerID)),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// Supply clamps a proposal against a fresh snapshot and appends it.
func (s *Service) Supply(ctx context.Context, scope Scope, proposal SupplyProposal) (SupplyPlan, error) {
	release, err := s.acquire(scope)
	if err != nil {
		return SupplyPlan{}, err
	}
	defer release()

	engine, err := s.Engine(ctx, scope)
	if err != nil {
		return SupplyPlan{}, err
	}

	if proposal.Date.IsZero() {
		proposal.Date = s.now()
	}
	plan, err := BuildSupply(engine, proposal)
	if err != nil {
		return plan, err
	}

	if err := s.store.AppendSupply(ctx, plan); err != nil {
		s.logger.Warn("supply dispatch failed",
			zap.String("tower_id", string(scope.TowerID)),
			zap.Error(err),
		)
		return SupplyPlan{}, fmt.Errorf("%w: append supply: %w", ErrBackend, err)
	}

	if len(plan.Adjustments) > 0 {
		s.logger.Info("supply quantities clamped",
			zap.String("tower_id", string(scope.TowerID)),
			zap.Int("adjustments", len(plan.Adjustments)),
		)
	}
	return plan, nil
}

func (s *Service) acquire(scope Scope) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[scope] {
		return nil, fmt.Errorf("%w: %s/%s", ErrWriteInFlight, scope.ProjectID, scope.TowerID)
	}
	s.inFlight[scope] = true
	return func() {
		s.mu.Lock()
		delete(s.inFlight, scope)
		s.mu.Unlock()
	}, nil
}
