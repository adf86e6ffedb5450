package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tour-booking/internal/status"
	"tour-booking/models"
)

// caller extracts the verified identity from the request auth record. An
// auth record without a role is treated as a plain customer.
func caller(e *core.RequestEvent) models.Caller {
	if e.Auth == nil {
		return models.Caller{}
	}
	role := models.Role(e.Auth.GetString("role"))
	if role == "" {
		role = models.RoleCustomer
	}
	return models.Caller{ID: e.Auth.Id, Role: role}
}

// apiError maps domain errors onto the API error vocabulary.
func apiError(err error) error {
	var gwErr *status.GatewayError

	switch {
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Not found", err)

	case errors.Is(err, status.ErrUnauthorized):
		return apis.NewForbiddenError("Access denied", err)

	case errors.Is(err, status.ErrAlreadyRedeemed):
		return apis.NewApiError(http.StatusConflict, "Ticket already redeemed", err)

	case errors.Is(err, status.ErrExpired):
		return apis.NewApiError(http.StatusConflict, "Ticket expired", err)

	case errors.Is(err, status.ErrConflict):
		return apis.NewApiError(http.StatusConflict, "Conflicting concurrent update, retry", err)

	case errors.Is(err, status.ErrNoPickupAvailable):
		return apis.NewApiError(http.StatusUnprocessableEntity, "No pickup point available for this hotel", err)

	case errors.Is(err, status.ErrPolicyViolation):
		return apis.NewApiError(http.StatusUnprocessableEntity, "Operation not allowed by booking policy", err)

	case errors.As(err, &gwErr):
		return apis.NewApiError(http.StatusBadGateway, "Payment gateway error", err)

	default:
		return apis.NewBadRequestError("Request failed", err)
	}
}
