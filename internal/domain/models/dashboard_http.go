package models

// Requests for the dashboard HTTP endpoints.

// LoginRequest is checked only against the credential store, so empty
// values fail like any other mismatch.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type LoadStrategyRequest struct {
	Query string `json:"query" query:"query"`
}

type EditParameterRequest struct {
	Field string `json:"field" validate:"required,oneof=startValue endValue increment parameterName notes optimizedTarget"`
	Value any    `json:"value"`
}

// CoverageRequest carries the slider value; out-of-range values are clamped.
type CoverageRequest struct {
	Percent *float64 `json:"percent" validate:"required"`
}

type StartTrainingRequest struct {
	Network string `json:"network" validate:"required"`
}
