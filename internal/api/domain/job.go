package domain

import (
	"errors"
)

// Job states. Transitions are monotonic:
// PENDING -> RUNNING -> {SUCCESS, FAILURE}.
const (
	JobStatePending = "PENDING"
	JobStateRunning = "RUNNING"
	JobStateSuccess = "SUCCESS"
	JobStateFailure = "FAILURE"
)

// Agent names the API accepts submissions for.
const (
	AgentOnchain = "onchain"
	AgentSocial  = "social"
	AgentMacro   = "macro"
)

var (
	ErrJobNotFound = errors.New("job not found")
)

// IsTerminal reports whether a state admits no further transitions.
func IsTerminal(state string) bool {
	return state == JobStateSuccess || state == JobStateFailure
}

// KnownAgent reports whether name is a registered agent kind.
func KnownAgent(name string) bool {
	switch name {
	case AgentOnchain, AgentSocial, AgentMacro:
		return true
	}
	return false
}
