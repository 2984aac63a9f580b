// Package models contains shared data models used across the tripline codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending = "pending"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// IsTerminalJobStatus reports whether a job status will never change again.
func IsTerminalJobStatus(status string) bool {
	return status == JobStatusSuccess || status == JobStatusFailed
}

// Job tracks an async itinerary-generation job on the core backend. The
// backend returns a job id on creation; clients poll until status is success
// or failed. Status is owned by the backend — this service never writes it.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	Status       string     `json:"status"`
	ItineraryID  *uuid.UUID `json:"itinerary_id,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ItineraryRequest is the input for creating a generation job.
type ItineraryRequest struct {
	Destination string   `json:"destination" validate:"required"`
	StartDate   string   `json:"start_date"  validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"end_date"    validate:"required,datetime=2006-01-02"`
	PartySize   int      `json:"party_size"  validate:"required,min=1,max=9"`
	Interests   []string `json:"interests,omitempty"`
}
