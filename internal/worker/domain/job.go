package domain

import "encoding/json"

// Job states through their lifecycle:
// PENDING -> RUNNING -> SUCCESS | FAILURE
const (
	JobStatePending = "PENDING"
	JobStateRunning = "RUNNING"
	JobStateSuccess = "SUCCESS"
	JobStateFailure = "FAILURE"
)

// Job is a claimed analysis job ready for execution.
type Job struct {
	JobID   string
	Agent   string
	Payload json.RawMessage
	State   string
}

// JobMessage is the queue message paired with its delivery tag for
// manual acknowledgment.
type JobMessage struct {
	JobID       string `json:"job_id"`
	Agent       string `json:"agent"`
	DeliveryTag uint64 `json:"-"`
}
