package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/warp/doorworks/doors"
	"github.com/warp/doorworks/session"
)

// Remote is a doors.Store backed by the REST backend. Every call needs a
// session attached to ctx with session.WithContext.
type Remote struct {
	client *Client
}

var _ doors.Store = (*Remote)(nil)

func NewRemote(c *Client) *Remote {
	return &Remote{client: c}
}

func (r *Remote) session(ctx context.Context) (session.Session, error) {
	s, ok := session.FromContext(ctx)
	if !ok || s.Token == "" {
		return session.Session{}, ErrNoSession
	}
	return s, nil
}

// Snapshot fetches the employee's tasks and the project's supply rows.
func (r *Remote) Snapshot(ctx context.Context, scope doors.Scope) (doors.Ledger, error) {
	s, err := r.session(ctx)
	if err != nil {
		return doors.Ledger{}, err
	}
	tasks, err := r.client.tasks(ctx, s)
	if err != nil {
		return doors.Ledger{}, err
	}
	supply, err := r.client.suppliedDoors(ctx, s, string(scope.ProjectID))
	if err != nil {
		return doors.Ledger{}, err
	}
	return ledgerFromWire(scope, tasks, supply, r.client.logger), nil
}

func (r *Remote) AppendInstalled(ctx context.Context, rows []doors.InstalledRecord) error {
	s, err := r.session(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return conflict(r.client.postInstallations(ctx, s, installedToWire(rows)))
}

func (r *Remote) AppendSupply(ctx context.Context, plan doors.SupplyPlan) error {
	s, err := r.session(ctx)
	if err != nil {
		return err
	}
	if len(plan.Entries) == 0 {
		return nil
	}
	return conflict(r.client.postSupply(ctx, s, supplyToWire(plan)))
}

// conflict maps a backend 409 to doors.ErrDuplicateRecord.
func conflict(err error) error {
	var serr *StatusError
	if errors.As(err, &serr) && serr.Status == http.StatusConflict {
		return fmt.Errorf("%w: %w", doors.ErrDuplicateRecord, err)
	}
	return err
}
