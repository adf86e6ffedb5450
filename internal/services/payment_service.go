package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"tour-booking/internal/services/gateway"
	"tour-booking/internal/status"
	"tour-booking/internal/store"
	"tour-booking/models"
	"tour-booking/monitoring"
)

// PaymentService reconciles the monetary side of bookings against the
// external gateway: capture notifications mark payments succeeded, cancels
// trigger refunds. Refunds are idempotent both locally (stored refund id)
// and gateway-side (external payment id as idempotency key).
type PaymentService struct {
	payments store.PaymentStore
	provider gateway.Provider

	maxAttempts int
	backoff     time.Duration
}

func NewPaymentService(payments store.PaymentStore, provider gateway.Provider) *PaymentService {
	return &PaymentService{
		payments: payments,
		provider: provider,

		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
	}
}

// MarkSucceeded records the gateway-reported capture for a booking's
// payment. Duplicate notifications are absorbed: a payment already in
// succeeded state is returned as-is.
func (s *PaymentService) MarkSucceeded(ctx context.Context, bookingID string, amount decimal.Decimal, externalPaymentID string) (*models.Payment, error) {
	p, err := s.payments.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if p.ExternalPaymentID != externalPaymentID {
		return nil, fmt.Errorf("payment %s: external id mismatch (have %s, notification says %s)", p.ID, p.ExternalPaymentID, externalPaymentID)
	}

	if p.Status == models.PaymentSucceeded {
		return p, nil
	}

	updated, err := s.payments.Transition(ctx, p.ID, models.PaymentPending, models.PaymentSucceeded, func(p *models.Payment) {
		p.CapturedAmount = amount
	})
	if errors.Is(err, status.ErrConflict) {
		// a concurrent notification won the race; accept its result
		current, ferr := s.payments.FindByBookingID(ctx, bookingID)
		if ferr == nil && current.Status == models.PaymentSucceeded {
			return current, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Refund reverses whatever was actually captured for a booking. Calling it
// on an already refunded payment returns the stored refund id without
// touching the gateway.
func (s *PaymentService) Refund(ctx context.Context, bookingID string) (string, error) {
	p, err := s.payments.FindByBookingID(ctx, bookingID)
	if err != nil {
		return "", err
	}

	if p.Status == models.PaymentRefunded {
		return p.RefundID, nil
	}
	if p.Status != models.PaymentSucceeded {
		return "", fmt.Errorf("payment %s: nothing captured to refund: %w", p.ID, status.ErrPolicyViolation)
	}
	if s.provider == nil {
		// setups without gateway credentials can still absorb duplicate
		// refund calls above, but never reach the gateway
		return "", &status.GatewayError{Op: "refund", Err: errors.New("no payment gateway configured")}
	}

	refundID, err := s.refundWithRetry(ctx, p)
	if err != nil {
		monitoring.TrackGatewayCall("refund", "error")
		return "", err
	}
	monitoring.TrackGatewayCall("refund", "ok")

	_, err = s.payments.Transition(ctx, p.ID, models.PaymentSucceeded, models.PaymentRefunded, func(p *models.Payment) {
		p.RefundID = refundID
	})
	if errors.Is(err, status.ErrConflict) {
		// a concurrent refund beat us to the write; the gateway dedupes by
		// idempotency key so both saw the same refund
		current, ferr := s.payments.FindByBookingID(ctx, bookingID)
		if ferr == nil && current.Status == models.PaymentRefunded {
			return current.RefundID, nil
		}
		return "", err
	}
	if err != nil {
		return "", err
	}

	return refundID, nil
}

func (s *PaymentService) refundWithRetry(ctx context.Context, p *models.Payment) (string, error) {
	backOff := s.backoff

	for attempt := 1; ; attempt++ {
		refundID, err := s.provider.Refund(ctx, p.ExternalPaymentID, p.CapturedAmount)
		if err == nil {
			return refundID, nil
		}
		if !status.IsRetryableGateway(err) || attempt >= s.maxAttempts {
			return "", err
		}

		log.Printf("refund %s attempt %d failed, retrying: %v", p.ExternalPaymentID, attempt, err)
		select {
		case <-ctx.Done():
			return "", &status.GatewayError{Op: "refund", Retryable: true, Err: ctx.Err()}

		case <-time.After(backOff):
			backOff *= 2
		}
	}
}
