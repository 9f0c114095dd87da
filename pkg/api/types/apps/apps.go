// Package apps holds the wire payloads of the app API.
package apps

import (
	"time"

	"github.com/1800agents/saki/pkg/domain"
)

type PrepareRequest struct {
	Name      string `json:"name"`
	GitCommit string `json:"git_commit"`
}

type PrepareResponse struct {
	Repository  string    `json:"repository"`
	PushToken   string    `json:"push_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	RequiredTag string    `json:"required_tag"`
}

type DeployRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image"`
}

type DeployResponse struct {
	AppID        string `json:"app_id"`
	DeploymentID string `json:"deployment_id"`
	URL          string `json:"url"`
	Status       string `json:"status"`
}

type Detail struct {
	AppID        string     `json:"app_id"`
	DeploymentID string     `json:"deployment_id"`
	Owner        string     `json:"owner"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Image        string     `json:"image"`
	URL          string     `json:"url"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	TTLExpiry    *time.Time `json:"ttl_expiry,omitempty"`
}

type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Stream    string    `json:"stream"`
	Message   string    `json:"message"`
}

type LogPage struct {
	Lines      []LogLine `json:"lines"`
	NextCursor *string   `json:"next_cursor,omitempty"`
}

func ComposePushGrant(g domain.PushGrant) PrepareResponse {
	return PrepareResponse{
		Repository:  g.Repository,
		PushToken:   g.PushToken,
		ExpiresAt:   g.ExpiresAt,
		RequiredTag: g.RequiredTag,
	}
}

func ComposeDeployed(r domain.AppRecord) DeployResponse {
	return DeployResponse{
		AppID:        r.AppID,
		DeploymentID: r.DeploymentID,
		URL:          r.URL,
		Status:       string(r.Status),
	}
}

func ComposeDetail(r domain.AppRecord) Detail {
	d := Detail{
		AppID:        r.AppID,
		DeploymentID: r.DeploymentID,
		Owner:        r.Owner,
		Name:         r.Name,
		Description:  r.Description,
		Image:        r.Image,
		URL:          r.URL,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if !r.TTLExpiry.IsZero() {
		expiry := r.TTLExpiry
		d.TTLExpiry = &expiry
	}
	return d
}

func ComposeLogPage(p domain.LogPage) LogPage {
	lines := make([]LogLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, LogLine{
			Timestamp: l.Timestamp,
			Stream:    l.Stream,
			Message:   l.Message,
		})
	}
	return LogPage{Lines: lines, NextCursor: p.NextCursor}
}
