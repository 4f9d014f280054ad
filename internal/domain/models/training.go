package models

import "time"

// TrainingStage enumerates the scripted training states in order.
type TrainingStage string

const (
	StageIdle                TrainingStage = "idle"
	StageRetrievingData      TrainingStage = "retrievingData"
	StageExecutingStrategies TrainingStage = "executingStrategies"
	StageBuildingNetwork     TrainingStage = "buildingNetwork"
	StageFinalizing          TrainingStage = "finalizing"
	StageComplete            TrainingStage = "complete"
)

// TrainingExecutionPasses is the number of strategy execution passes shown as k/2.
const TrainingExecutionPasses = 2

// Step returns the 1-based position shown in the progress stepper; idle is 0.
func (s TrainingStage) Step() int {
	switch s {
	case StageRetrievingData:
		return 1
	case StageExecutingStrategies:
		return 2
	case StageBuildingNetwork:
		return 3
	case StageFinalizing:
		return 4
	case StageComplete:
		return 5
	default:
		return 0
	}
}

// TrainingStatus is the presentation state of the training simulator.
type TrainingStatus struct {
	RunID          string        `json:"runId,omitempty"`
	Network        string        `json:"network,omitempty"`
	Stage          TrainingStage `json:"stage"`
	Step           int           `json:"step"`
	ExecutionCount int           `json:"executionCount"`
	ExecutionTotal int           `json:"executionTotal"`
	Running        bool          `json:"running"`
	StartedAt      *time.Time    `json:"startedAt,omitempty"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}
