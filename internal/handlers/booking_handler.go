package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tour-booking/internal/services"
)

type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// Create - POST /api/v1/bookings
func (h *BookingHandler) Create(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.CreateBookingRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	booking, err := h.bookingService.Create(e.Request.Context(), caller(e), req)
	if err != nil {
		slog.Error("bookingService.Create()", "tour", req.TourID, "hotel", req.HotelID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, booking)
}

// Get - GET /api/v1/bookings/{bookingId}
func (h *BookingHandler) Get(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	bookingID := e.Request.PathValue("bookingId")
	booking, err := h.bookingService.Get(e.Request.Context(), bookingID, caller(e))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"booking":    booking,
		"amount_due": booking.AmountDue(),
	})
}

// Cancel - POST /api/v1/bookings/{bookingId}/cancel
func (h *BookingHandler) Cancel(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	bookingID := e.Request.PathValue("bookingId")
	booking, err := h.bookingService.Cancel(e.Request.Context(), bookingID, caller(e))
	if err != nil {
		slog.Error("bookingService.Cancel()", "booking", bookingID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, booking)
}
