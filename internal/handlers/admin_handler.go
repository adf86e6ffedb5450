package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tour-booking/internal/geo"
	"tour-booking/internal/services"
	"tour-booking/internal/store"
	"tour-booking/models"
)

type AdminHandler struct {
	assignmentService *services.AssignmentService
	paymentService    *services.PaymentService
	points            store.MeetingPointStore
	geocoder          geo.Geocoder
}

func NewAdminHandler(
	assignmentService *services.AssignmentService,
	paymentService *services.PaymentService,
	points store.MeetingPointStore,
	geocoder geo.Geocoder,
) *AdminHandler {
	return &AdminHandler{
		assignmentService: assignmentService,
		paymentService:    paymentService,
		points:            points,
		geocoder:          geocoder,
	}
}

func requireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil || caller(e).Role != models.RoleAdmin {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}
	return nil
}

// Reassign - POST /api/v1/admin/meeting-points/reassign
func (h *AdminHandler) Reassign(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	result, err := h.assignmentService.Reassign(e.Request.Context())
	if err != nil {
		slog.Error("assignmentService.Reassign()", "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

type upsertMeetingPointRequest struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Region     models.Region `json:"region"`
	SourceLink string        `json:"source_link"`
}

// UpsertMeetingPoint - PUT /api/v1/admin/meeting-points
//
// Geocodes the source link up front so assignment runs never wait on the
// geocoder. A point the geocoder cannot place is stored without
// coordinates and simply ignored by assignment runs.
func (h *AdminHandler) UpsertMeetingPoint(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req upsertMeetingPointRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Name == "" || !req.Region.Valid() {
		return apis.NewBadRequestError("Name and a valid region are required", nil)
	}

	mp := &models.MeetingPoint{
		ID:         req.ID,
		Name:       req.Name,
		Region:     req.Region,
		SourceLink: req.SourceLink,
	}

	if req.SourceLink != "" {
		coords, err := h.geocoder.Resolve(e.Request.Context(), req.SourceLink)
		if err != nil {
			slog.Warn("geocoder.Resolve()", "link", req.SourceLink, "error", err)
		} else {
			mp.Coordinates = &coords
		}
	}

	if err := h.points.Save(e.Request.Context(), mp); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, mp)
}

// RefundPayment - POST /api/v1/admin/payments/{bookingId}/refund
//
// Manual recovery path for refunds that failed after a cancel. Idempotent:
// re-running it on a refunded payment returns the same refund id.
func (h *AdminHandler) RefundPayment(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	bookingID := e.Request.PathValue("bookingId")
	refundID, err := h.paymentService.Refund(e.Request.Context(), bookingID)
	if err != nil {
		slog.Error("paymentService.Refund()", "booking", bookingID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"refund_id": refundID})
}
