// Package store defines the persistence contracts of the booking core and
// ships two implementations: one backed by the PocketBase app database and a
// mutex-guarded in-memory one for tests.
package store

import (
	"context"

	"tour-booking/models"
)

// BookingPrecondition guards a conditional booking write. Empty fields are
// not checked. A write whose precondition no longer matches the stored row
// fails with status.ErrConflict and changes nothing.
type BookingPrecondition struct {
	Status       models.BookingStatus
	TicketStatus models.TicketStatus
}

type BookingStore interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)

	// Save inserts a new booking and fills in its generated id.
	Save(ctx context.Context, b *models.Booking) error

	// Transition applies mutate to the stored booking if pre still holds,
	// as a single compare-and-swap. Returns the updated booking.
	Transition(ctx context.Context, id string, pre BookingPrecondition, mutate func(*models.Booking)) (*models.Booking, error)
}

type PaymentStore interface {
	FindByBookingID(ctx context.Context, bookingID string) (*models.Payment, error)
	FindByExternalID(ctx context.Context, externalPaymentID string) (*models.Payment, error)
	Save(ctx context.Context, p *models.Payment) error

	// Transition is the payment-side compare-and-swap on status.
	Transition(ctx context.Context, id string, from, to models.PaymentStatus, mutate func(*models.Payment)) (*models.Payment, error)
}

type HotelStore interface {
	FindByID(ctx context.Context, id string) (*models.Hotel, error)
	FindAll(ctx context.Context) ([]models.Hotel, error)

	// UpdateAssignments overwrites both the per-region map and the legacy
	// global assignment of one hotel. Assignment runs own these fields.
	UpdateAssignments(ctx context.Context, hotelID string, perRegion map[models.Region]string, globalID string) error
}

type MeetingPointStore interface {
	FindByID(ctx context.Context, id string) (*models.MeetingPoint, error)
	FindAll(ctx context.Context) ([]models.MeetingPoint, error)

	// Save inserts when mp.ID is empty, otherwise overwrites.
	Save(ctx context.Context, mp *models.MeetingPoint) error
}
