package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tour-booking/internal/services"
)

type TicketHandler struct {
	ticketService *services.TicketService
}

func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// Validate - POST /api/v1/tickets/{bookingId}/validate
func (h *TicketHandler) Validate(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	bookingID := e.Request.PathValue("bookingId")
	booking, err := h.ticketService.Validate(e.Request.Context(), bookingID, caller(e))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"booking":     booking,
		"amount_due":  booking.AmountDue(),
		"redeemed_at": booking.RedeemedAt,
		"redeemed_by": booking.RedeemedBy,
	})
}
