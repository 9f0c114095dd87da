// Package apps defines the workload store boundary: reading and
// writing apps as orchestrator objects.
package apps

import (
	"context"

	"github.com/1800agents/saki/pkg/domain"
)

// Workload is everything needed to materialize an app on the cluster:
// the record itself plus the parts which are derived outside the store.
type Workload struct {
	Record domain.AppRecord

	// Host is the route hostname, e.g. "my-app.apps.example.com".
	Host string

	// Env is the container environment. The store renders it in key
	// order so repeated writes stay no-op diffs.
	Env map[string]string
}

// WorkloadStore reads and writes apps. The orchestrator objects are
// the only system of record: there is no shadow database to drift.
//
// Every operation that writes carries the version token it read, and
// surfaces ErrConflict when the token has gone stale. Callers decide
// whether to re-read; the store never retries on its own.
type WorkloadStore interface {
	// FindByOwnerAndName returns the app of an (owner, name) pair.
	//
	// (nil, nil) when no such app exists. ErrConsistency when more
	// than one workload object matches the pair.
	FindByOwnerAndName(ctx context.Context, owner string, name string) (*domain.AppRecord, error)

	// FindByID returns the app of one app id, under the same contract:
	// (nil, nil) when no such app exists, ErrConsistency when more than
	// one workload object carries the id.
	FindByID(ctx context.Context, appID string) (*domain.AppRecord, error)

	// ListByOwner returns the apps of one owner, most recently
	// updated first. Objects whose records do not decode are skipped.
	ListByOwner(ctx context.Context, owner string) ([]domain.AppRecord, error)

	// ListAll returns every app of this control plane, most recently
	// updated first.
	ListAll(ctx context.Context) ([]domain.AppRecord, error)

	// Upsert writes the workload, network-exposure and route objects
	// of an app, creating or replacing each.
	//
	// ErrConflict when an object changed underneath the write.
	Upsert(ctx context.Context, w Workload) (domain.AppRecord, error)

	// SetReplicas scales the workload object (0 stops, 1 starts) and
	// returns the refreshed record.
	//
	// ErrMissing when the app does not exist; ErrConflict when the
	// workload object changed underneath the write.
	SetReplicas(ctx context.Context, owner string, name string, replicas int32) (domain.AppRecord, error)

	// Delete removes all three objects of an app. Already-gone
	// objects are fine; ErrMissing only when the app itself is
	// unknown.
	Delete(ctx context.Context, owner string, name string) error
}
