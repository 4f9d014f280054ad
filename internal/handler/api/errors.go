package api

import (
	"errors"

	"QuantDesk/internal/usecase"
	xhttp "QuantDesk/pkg/http"
)

// toAppError maps usecase errors to their HTTP form.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return xhttp.UnauthorizedError("ERR_INVALID_CREDENTIALS", usecase.MsgInvalidCredentials)
	case errors.Is(err, usecase.ErrEmptyQuery):
		return xhttp.UnprocessableError("ERR_EMPTY_QUERY", "query", usecase.MsgEmptyQuery)
	case errors.Is(err, usecase.ErrStrategyNotFound):
		return xhttp.NotFoundError("ERR_STRATEGY_NOT_FOUND", usecase.MsgStrategyNotFound)
	case errors.Is(err, usecase.ErrRowOutOfRange):
		return xhttp.NotFoundError("ERR_ROW_NOT_FOUND", "Parameter row does not exist").WithError(err)
	case errors.Is(err, usecase.ErrUnknownField):
		return xhttp.UnprocessableError("ERR_UNKNOWN_FIELD", "field", "Field cannot be edited")
	case errors.Is(err, usecase.ErrNetworkRequired):
		return xhttp.UnprocessableError("ERR_NETWORK_REQUIRED", "network", "Please select a neural network")
	case errors.Is(err, usecase.ErrUnknownNetwork):
		return xhttp.UnprocessableError("ERR_UNKNOWN_NETWORK", "network", "Unknown neural network")
	case errors.Is(err, usecase.ErrTrainingRunning):
		return xhttp.ConflictError("ERR_TRAINING_RUNNING", "Training is already running")
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
