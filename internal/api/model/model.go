package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Job is the persisted analysis job row.
type Job struct {
	JobID        string          `db:"job_id"`
	Agent        string          `db:"agent"`
	Payload      json.RawMessage `db:"payload"`
	State        string          `db:"state"`
	Result       json.RawMessage `db:"result"`
	ErrorKind    sql.NullString  `db:"error_kind"`
	ErrorMessage sql.NullString  `db:"error_message"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}
