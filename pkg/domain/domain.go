// Package domain has the entity types of the saki control plane.
//
// There is no database row per app: an AppRecord is always re-derived
// from the cluster objects which back it. See pkg/domain/apps.
package domain

import (
	"time"
)

// Status is the lifecycle status of an app, derived from the observed
// state of its workload object. It is never trusted from a prior write.
type Status string

const (
	Pending   Status = "pending"
	Deploying Status = "deploying"
	Healthy   Status = "healthy"
	Failed    Status = "failed"
	Stopped   Status = "stopped"
	Deleting  Status = "deleting"
)

// AppRecord is one hosted application.
//
// AppID and DeploymentID are assigned at first creation and survive
// redeploys. Owner is the namespace boundary from the caller's session
// and never changes. (Owner, Name) identifies at most one live app.
type AppRecord struct {
	AppID        string
	DeploymentID string
	Owner        string
	Name         string
	Description  string
	Image        string
	URL          string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	TTLExpiry    time.Time
}

// Equal compares all fields. Timestamps compare with time.Time.Equal,
// so records decoded from annotations match their originals even when
// the monotonic clock reading was dropped.
func (r AppRecord) Equal(o AppRecord) bool {
	return r.AppID == o.AppID &&
		r.DeploymentID == o.DeploymentID &&
		r.Owner == o.Owner &&
		r.Name == o.Name &&
		r.Description == o.Description &&
		r.Image == o.Image &&
		r.URL == o.URL &&
		r.Status == o.Status &&
		r.CreatedAt.Equal(o.CreatedAt) &&
		r.UpdatedAt.Equal(o.UpdatedAt) &&
		r.TTLExpiry.Equal(o.TTLExpiry)
}

// LogLine is one line of pod output.
//
// Stream is always "stdout": the cluster's log API does not distinguish
// stdout from stderr at this layer. This is a documented limitation.
type LogLine struct {
	Timestamp time.Time
	Stream    string
	Message   string
}

// LogPage is a page of log lines. NextCursor is nil when the page
// reaches the end of the current tail window.
type LogPage struct {
	Lines      []LogLine
	NextCursor *string
}

// PushGrant is what a client needs to push an image for an app.
type PushGrant struct {
	Repository  string
	PushToken   string
	ExpiresAt   time.Time
	RequiredTag string
}
