/*
store.go - Ledger persistence interface

PURPOSE:
  The boundary between the reconciliation engine and whoever owns the
  ledgers. In production that is the remote REST backend (client.Remote);
  for standalone and demo runs it is store/sqlite; tests use the
  in-memory store in doors/store.

APPEND-ONLY CONTRACT:
  Snapshot() reads the full history for a scope.
  AppendInstalled() and AppendSupply() are the only writes.
  There is NO Update and NO Delete.

ATOMIC BATCHES:
  Both appends are all-or-nothing. A failed append must leave the
  ledger unchanged so the next Snapshot shows the pre-submit state.

IMPLEMENTATIONS:
  - doors/store/memory.go: In-memory, for tests
  - store/sqlite/sqlite.go: SQLite via sqlx
  - client/remote.go:       Remote REST backend
*/
package doors

import "context"

// Store owns the supply and installation ledgers.
type Store interface {
	// Snapshot returns units, requirements and both ledgers for a scope.
	Snapshot(ctx context.Context, scope Scope) (Ledger, error)

	// AppendInstalled persists installation rows atomically.
	AppendInstalled(ctx context.Context, rows []InstalledRecord) error

	// AppendSupply persists a validated supply plan atomically.
	AppendSupply(ctx context.Context, plan SupplyPlan) error
}
