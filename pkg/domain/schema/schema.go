// Package schema is the per-app database schema boundary.
//
// Each app gets one schema in the shared database; provisioning it is
// part of the upsert path, dropping it is part of delete. Nothing in
// this control plane ever reads from those schemas.
package schema

import (
	"context"
	"strings"
)

// Provisioner creates and drops per-app schemas. Both operations are
// idempotent.
type Provisioner interface {
	EnsureSchema(ctx context.Context, appID string) error
	DropSchema(ctx context.Context, appID string) error
}

// Name is the schema name of an app: "app_" plus the app id with
// dashes flattened to underscores.
func Name(appID string) string {
	return "app_" + strings.ReplaceAll(appID, "-", "_")
}
