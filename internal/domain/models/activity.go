package models

import "time"

// ActivityKind labels an entry of the dashboard activity stream.
type ActivityKind string

const (
	ActivityLoginSucceeded  ActivityKind = "login_succeeded"
	ActivityLoginFailed     ActivityKind = "login_failed"
	ActivityLogout          ActivityKind = "logout"
	ActivityStrategySearch  ActivityKind = "strategy_search"
	ActivityParametersSaved ActivityKind = "parameters_saved"
	ActivityTrainingStage   ActivityKind = "training_stage"
)

type ActivityEvent struct {
	ID      string       `json:"id"`
	Kind    ActivityKind `json:"kind"`
	Actor   string       `json:"actor,omitempty"`
	Subject string       `json:"subject,omitempty"`
	Detail  string       `json:"detail,omitempty"`
	At      time.Time    `json:"at"`
}
