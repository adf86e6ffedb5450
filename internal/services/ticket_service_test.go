package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/status"
	"tour-booking/internal/store"
	"tour-booking/models"
)

func seedBooking(t *testing.T, bookings *store.MemoryBookings, st models.BookingStatus, ticket models.TicketStatus) *models.Booking {
	t.Helper()
	b := &models.Booking{
		CustomerID:   "cust1",
		TourID:       "tour-island",
		Date:         time.Now().Add(48 * time.Hour),
		Status:       st,
		TicketStatus: ticket,
	}
	require.NoError(t, bookings.Save(context.Background(), b))
	return b
}

func TestValidate(t *testing.T) {
	bookings := store.NewMemoryBookings()
	svc := NewTicketService(bookings)
	b := seedBooking(t, bookings, models.BookingConfirmed, models.TicketValid)

	redeemed, err := svc.Validate(context.Background(), b.ID, models.Caller{ID: "guide1", Role: models.RoleGuide})

	require.NoError(t, err)
	assert.Equal(t, models.TicketRedeemed, redeemed.TicketStatus)
	assert.Equal(t, "guide1", redeemed.RedeemedBy)
	require.NotNil(t, redeemed.RedeemedAt)
	assert.WithinDuration(t, time.Now(), *redeemed.RedeemedAt, 5*time.Second)
}

func TestValidate_CustomerForbidden(t *testing.T) {
	bookings := store.NewMemoryBookings()
	svc := NewTicketService(bookings)
	b := seedBooking(t, bookings, models.BookingConfirmed, models.TicketValid)

	_, err := svc.Validate(context.Background(), b.ID, models.Caller{ID: "cust1", Role: models.RoleCustomer})

	assert.ErrorIs(t, err, status.ErrUnauthorized)
}

func TestValidate_AlreadyRedeemed(t *testing.T) {
	bookings := store.NewMemoryBookings()
	svc := NewTicketService(bookings)
	b := seedBooking(t, bookings, models.BookingConfirmed, models.TicketRedeemed)

	_, err := svc.Validate(context.Background(), b.ID, models.Caller{ID: "guide1", Role: models.RoleGuide})

	assert.ErrorIs(t, err, status.ErrAlreadyRedeemed)
}

func TestValidate_Expired(t *testing.T) {
	bookings := store.NewMemoryBookings()
	svc := NewTicketService(bookings)
	b := seedBooking(t, bookings, models.BookingCancelled, models.TicketExpired)

	_, err := svc.Validate(context.Background(), b.ID, models.Caller{ID: "guide1", Role: models.RoleGuide})

	assert.ErrorIs(t, err, status.ErrExpired)
}

// An unpaid booking with a valid ticket still checks in; the outstanding
// balance comes back with the booking for on-site collection.
func TestValidate_PendingBookingRedeemsWithBalanceDue(t *testing.T) {
	bookings := store.NewMemoryBookings()
	svc := NewTicketService(bookings)
	b := &models.Booking{
		CustomerID:   "cust1",
		TourID:       "tour-island",
		Date:         time.Now().Add(48 * time.Hour),
		Status:       models.BookingPending,
		TicketStatus: models.TicketValid,
		TotalPrice:   decimal.NewFromInt(100),
	}
	require.NoError(t, bookings.Save(context.Background(), b))

	redeemed, err := svc.Validate(context.Background(), b.ID, models.Caller{ID: "guide1", Role: models.RoleGuide})

	require.NoError(t, err)
	assert.Equal(t, models.TicketRedeemed, redeemed.TicketStatus)
	assert.True(t, redeemed.AmountDue().Equal(decimal.NewFromInt(100)))
}

func TestValidate_NotFound(t *testing.T) {
	svc := NewTicketService(store.NewMemoryBookings())

	_, err := svc.Validate(context.Background(), "nope", models.Caller{ID: "guide1", Role: models.RoleGuide})

	assert.ErrorIs(t, err, status.ErrNotFound)
}

// Two guides scanning the same ticket at once: exactly one wins.
func TestValidate_ConcurrentScans(t *testing.T) {
	bookings := store.NewMemoryBookings()
	svc := NewTicketService(bookings)
	b := seedBooking(t, bookings, models.BookingConfirmed, models.TicketValid)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		oks      int
		replayed int
	)
	for _, guide := range []string{"guide1", "guide2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Validate(context.Background(), b.ID, models.Caller{ID: guide, Role: models.RoleGuide})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, status.ErrAlreadyRedeemed):
				replayed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, 1, replayed)

	stored, err := bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketRedeemed, stored.TicketStatus)
}
