package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a statistics job.
type JobStatus string

const (
	StatusPending JobStatus = "PENDING"
	StatusSuccess JobStatus = "SUCCESS"
	StatusFailure JobStatus = "FAILURE"
)

// IsTerminal returns true if the status represents a final state.
// Terminal states never change once reached.
func (s JobStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Stats holds the computed statistics for a file's contents.
type Stats struct {
	Lines      int `json:"lines"`
	Characters int `json:"characters"`
}

// Outcome is the terminal result of a job: either success statistics or
// a failure message. Business failures (e.g. a payload that cannot be
// decoded) are outcomes, not errors; errors are reserved for
// infrastructure faults.
type Outcome struct {
	Status  JobStatus
	Stats   *Stats
	Message string
}

// Success wraps computed statistics in a SUCCESS outcome.
func Success(stats Stats) Outcome {
	return Outcome{Status: StatusSuccess, Stats: &stats}
}

// Failure wraps a human-readable message in a FAILURE outcome.
func Failure(message string) Outcome {
	return Outcome{Status: StatusFailure, Message: message}
}

// Job represents a statistics job throughout its lifecycle. Payload is
// the transport-encoded file contents and is immutable once enqueued.
type Job struct {
	JobID     uuid.UUID `json:"job_id"`
	Task      string    `json:"task"`
	Payload   string    `json:"payload"`
	Status    JobStatus `json:"status"`
	Result    *Stats    `json:"result,omitempty"`
	Failure   string    `json:"failure,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStatusDoc is the status document returned to polling clients.
// Result and Failure are populated only in terminal states; while the
// job is PENDING both are absent so callers can distinguish "not yet
// available" from "available and empty".
type JobStatusDoc struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  JobStatus `json:"status"`
	Result  *Stats    `json:"result,omitempty"`
	Failure string    `json:"failure,omitempty"`
}

// SubmitRequest represents an incoming submission from the API.
type SubmitRequest struct {
	Content string `json:"content"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// JobMessage wraps a job delivered by the broker together with the
// acknowledgement callbacks for that delivery.
type JobMessage struct {
	Job  *Job
	Ack  func() error
	Nack func(requeue bool) error
}
