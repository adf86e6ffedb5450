package services

import (
	"context"
	"errors"
	"log"
	"time"

	"tour-booking/internal/status"
	"tour-booking/internal/store"
	"tour-booking/models"
	"tour-booking/monitoring"
)

// TicketService handles on-site check-in. Redemption is a one-way,
// exactly-once transition enforced by the store's conditional write, so two
// guides scanning the same ticket at once cannot both succeed.
type TicketService struct {
	bookings store.BookingStore
}

func NewTicketService(bookings store.BookingStore) *TicketService {
	return &TicketService{bookings: bookings}
}

// Validate redeems the ticket attached to a booking and stamps who redeemed
// it and when. Only guides and admins may validate. A valid ticket redeems
// even when the booking is still pending payment; the returned booking
// carries the outstanding balance so it can be collected on-site.
func (s *TicketService) Validate(ctx context.Context, bookingID string, redeemer models.Caller) (*models.Booking, error) {
	if redeemer.Role != models.RoleGuide && redeemer.Role != models.RoleAdmin {
		return nil, status.ErrUnauthorized
	}

	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch b.TicketStatus {
	case models.TicketExpired:
		return nil, status.ErrExpired
	case models.TicketRedeemed:
		return nil, status.ErrAlreadyRedeemed
	}

	now := time.Now().UTC()
	redeemed, err := s.bookings.Transition(ctx, bookingID,
		store.BookingPrecondition{TicketStatus: models.TicketValid},
		func(b *models.Booking) {
			b.TicketStatus = models.TicketRedeemed
			b.RedeemedAt = &now
			b.RedeemedBy = redeemer.ID
		})
	if errors.Is(err, status.ErrConflict) {
		// lost the race to another scanner; report what the ticket became
		current, ferr := s.bookings.FindByID(ctx, bookingID)
		if ferr != nil {
			return nil, err
		}
		switch current.TicketStatus {
		case models.TicketRedeemed:
			return nil, status.ErrAlreadyRedeemed
		case models.TicketExpired:
			return nil, status.ErrExpired
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	monitoring.TrackBookingOperation("validate", "ok")
	log.Printf("ticket for booking %s redeemed by %s", bookingID, redeemer.ID)
	return redeemed, nil
}
