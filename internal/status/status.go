// Package status holds the typed error taxonomy shared by the booking core.
// Every domain failure crossing a component boundary is one of these values
// (or wraps one), never an ad-hoc string the caller has to parse.
package status

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing booking, payment, hotel or meeting point.
	ErrNotFound = errors.New("status: record not found")

	// ErrPolicyViolation reports a cancel outside the allowed window, on a
	// non-confirmed booking, or on an already redeemed ticket.
	ErrPolicyViolation = errors.New("status: cancellation policy violation")

	// ErrNoPickupAvailable reports a hotel with no assigned meeting point for
	// the tour's region and no legacy global assignment either.
	ErrNoPickupAvailable = errors.New("status: no pickup point available for hotel")

	// ErrAlreadyRedeemed reports a second redemption attempt on a ticket.
	ErrAlreadyRedeemed = errors.New("status: ticket already redeemed")

	// ErrExpired reports redemption of a ticket on a cancelled booking.
	ErrExpired = errors.New("status: ticket expired")

	// ErrUnauthorized reports a caller whose role or identity does not cover
	// the requested operation.
	ErrUnauthorized = errors.New("status: caller not authorized")

	// ErrConflict reports a lost optimistic-concurrency race. The caller may
	// retry the whole operation against fresh state.
	ErrConflict = errors.New("status: concurrent modification")
)

// GatewayError wraps a failed call to the external payment gateway.
// Retryable failures (timeouts, 5xx, transport errors) are retried with
// backoff before being surfaced; the rest surface immediately.
type GatewayError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryableGateway reports whether err is a gateway failure worth retrying.
func IsRetryableGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Retryable
}
