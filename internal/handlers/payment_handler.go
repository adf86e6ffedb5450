package handlers

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"tour-booking/internal/services"
	"tour-booking/internal/services/gateway/yespay"
)

type PaymentHandler struct {
	bookingService *services.BookingService

	// callbackSecretHash is the bcrypt hash the webhook secret is checked
	// against.
	callbackSecretHash string
}

func NewPaymentHandler(bookingService *services.BookingService, callbackSecretHash string) *PaymentHandler {
	return &PaymentHandler{
		bookingService:     bookingService,
		callbackSecretHash: callbackSecretHash,
	}
}

type captureCallbackRequest struct {
	BillNumber string          `json:"billNumber"`
	RefNo      string          `json:"refNo"`
	TxnAmount  decimal.Decimal `json:"txnAmount"`
	Status     string          `json:"status"`
}

// CaptureCallback - POST /api/v1/payments/callback
//
// Fallback delivery path for capture notifications; the primary path is the
// provider's realtime channel. Both converge on Confirm, which absorbs
// duplicates.
func (h *PaymentHandler) CaptureCallback(e *core.RequestEvent) error {
	secret := e.Request.Header.Get("X-Callback-Secret")
	if !yespay.VerifyCallbackSecret(h.callbackSecretHash, secret) {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req captureCallbackRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.BillNumber == "" || req.Status != "SUCCESS" {
		log.Printf("CaptureCallback: billNumber: %s, status: %s", req.BillNumber, req.Status)
		return apis.NewBadRequestError("Invalid callback body", nil)
	}

	booking, err := h.bookingService.Confirm(e.Request.Context(), req.BillNumber, req.TxnAmount)
	if err != nil {
		slog.Error("bookingService.Confirm()", "bill", req.BillNumber, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"code":    200,
		"status":  "OK",
		"booking": booking.ID,
	})
}
