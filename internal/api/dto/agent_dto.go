package dto

import (
	"encoding/json"
)

// OnchainAnalyzeRequest is the submission payload for the onchain agent.
type OnchainAnalyzeRequest struct {
	Wallet  string `json:"wallet" binding:"required"`
	Network string `json:"network" binding:"required"`
}

// SocialAnalyzeRequest is the submission payload for the social agent.
type SocialAnalyzeRequest struct {
	Timeframe   string   `json:"timeframe" binding:"required,oneof=1h 24h 7d"`
	FocusTokens []string `json:"focus_tokens"`
}

// MacroAnalyzeRequest is the submission payload for the macro agent.
// An empty protocol means "all tracked protocols".
type MacroAnalyzeRequest struct {
	Protocol string `json:"protocol"`
}

// SubmitResponse is returned by every analyze endpoint.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// JobError is the structured failure detail of a FAILURE job.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatusResponse is returned by every status endpoint. Result and Error
// are mutually exclusive and present only in terminal states.
type StatusResponse struct {
	JobID  string          `json:"job_id"`
	State  string          `json:"state"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *JobError       `json:"error,omitempty"`
}
