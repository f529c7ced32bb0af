// Package schedule models the external cron jobs that fire the notification
// trigger endpoint. This service does not persist schedules; Job is a view
// over the scheduling backend's job list.
package schedule

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the opaque body a job replays against the trigger endpoint.
type Payload struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// EncodePayload serializes a payload the way the scheduling backend carries
// HTTP bodies: base64 over JSON.
func EncodePayload(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal schedule payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodePayload reverses EncodePayload.
func DecodePayload(body string) (Payload, error) {
	var p Payload
	b, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return p, fmt.Errorf("decode schedule payload: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("unmarshal schedule payload: %w", err)
	}
	return p, nil
}

// Job is one scheduled trigger as reported by the backend.
type Job struct {
	ID             string
	Description    string
	CronExpression string
	Payload        Payload
	Enabled        bool
	LastRun        *time.Time
	NextRun        *time.Time
}

// Client is the thin translation layer over the scheduling backend. Job ids
// are opaque strings, unique per job.
type Client interface {
	CreateJob(ctx context.Context, id, description, cronExpression string, p Payload) error
	UpdateJob(ctx context.Context, id, description, cronExpression string, p Payload) error
	ListJobs(ctx context.Context) ([]*Job, error)
	DeleteJob(ctx context.Context, id string) error
	PauseJob(ctx context.Context, id string) error
	ResumeJob(ctx context.Context, id string) error
}
