// Package sessions keeps a short-lived ledger of processing sessions so a
// client can look up what happened to a request after the fact.
package sessions

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for unknown or expired ids.
var ErrNotFound = errors.New("session not found")

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record describes one session. It never carries filesystem paths.
type Record struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Style       string    `json:"style,omitempty"`
	Status      Status    `json:"status"`
	Title       string    `json:"title,omitempty"`
	Duration    int64     `json:"duration,omitempty"`
	SizeBytes   int64     `json:"size,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// Store persists records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
}
