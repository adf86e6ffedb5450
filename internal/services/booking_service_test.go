package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/status"
	"tour-booking/internal/store"
	"tour-booking/models"
)

type mapCatalog map[string]models.Tour

func (c mapCatalog) Lookup(_ context.Context, tourID string) (*models.Tour, error) {
	tour, ok := c[tourID]
	if !ok {
		return nil, status.ErrNotFound
	}
	out := tour
	return &out, nil
}

type bookingFixture struct {
	svc      *BookingService
	bookings *store.MemoryBookings
	payments *store.MemoryPayments
	provider *fakeProvider
	now      time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	catalog := mapCatalog{
		"tour-island": {
			ID:      "tour-island",
			Title:   "Island Hopping",
			Region:  models.RegionSouth,
			Price:   decimal.NewFromInt(50),
			Deposit: decimal.NewFromInt(20),
		},
		"tour-temple": {
			ID:     "tour-temple",
			Title:  "Temple Walk",
			Region: models.RegionNorth,
			Price:  decimal.NewFromInt(40),
		},
	}

	hotels := store.NewMemoryHotels(
		models.Hotel{
			ID:   "h1",
			Name: "Seaside Resort",
			AssignedMeetingPoints: map[models.Region]string{
				models.RegionSouth: "mp-pier",
			},
		},
		models.Hotel{
			ID:                     "h-legacy",
			Name:                   "Old Town Inn",
			AssignedMeetingPointID: "mp-pier",
		},
		models.Hotel{
			ID:   "h-stale",
			Name: "Ghost Hotel",
			AssignedMeetingPoints: map[models.Region]string{
				models.RegionSouth: "mp-deleted",
			},
		},
		models.Hotel{ID: "h-bare", Name: "No Pickup Hotel"},
	)
	points := store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "mp-pier", Name: "Main Pier", Region: models.RegionSouth},
	)

	bookings := store.NewMemoryBookings()
	payments := store.NewMemoryPayments()
	provider := &fakeProvider{refundID: "re_cancel"}
	reconciler := NewPaymentService(payments, provider)

	f := &bookingFixture{
		svc:      NewBookingService(bookings, payments, hotels, points, catalog, reconciler, BookingConfig{}),
		bookings: bookings,
		payments: payments,
		provider: provider,
		now:      time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *bookingFixture) createConfirmed(t *testing.T, date time.Time) *models.Booking {
	t.Helper()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         date,
		Participants: models.Participants{Adults: 2},
		HotelID:      "h1",
		PaymentType:  models.PaymentFull,
	})
	require.NoError(t, err)

	p, err := f.payments.FindByBookingID(ctx, b.ID)
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, p.ExternalPaymentID, b.TotalPrice)
	require.NoError(t, err)
	return confirmed
}

func TestCreate_DepositBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 2},
		HotelID:      "h1",
		PaymentType:  models.PaymentDeposit,
	})

	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, models.TicketValid, b.TicketStatus)
	assert.Equal(t, "mp-pier", b.MeetingPointID)
	assert.True(t, b.TotalPrice.Equal(decimal.NewFromInt(100)), "total %s", b.TotalPrice)
	assert.True(t, b.AmountPaid.Equal(decimal.NewFromInt(20)), "paid %s", b.AmountPaid)
	assert.True(t, b.AmountDue().Equal(decimal.NewFromInt(80)), "due %s", b.AmountDue())

	p, err := f.payments.FindByBookingID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.NotEmpty(t, p.ExternalPaymentID)
}

func TestCreate_DepositRateFallback(t *testing.T) {
	f := newBookingFixture(t)

	// temple walk defines no deposit; 20% of 40 = 8
	b, err := f.svc.Create(context.Background(), models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-temple",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 1},
		HotelID:      "h-legacy",
		PaymentType:  models.PaymentDeposit,
	})

	require.NoError(t, err)
	assert.True(t, b.AmountPaid.Equal(decimal.NewFromInt(8)), "paid %s", b.AmountPaid)
}

func TestCreate_PricesChildrenHalfInfantsFree(t *testing.T) {
	f := newBookingFixture(t)

	// 2 adults + 1 child + 1 infant at 50: 100 + 25 + 0
	b, err := f.svc.Create(context.Background(), models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 2, Children: 1, Infants: 1},
		HotelID:      "h1",
		PaymentType:  models.PaymentFull,
	})

	require.NoError(t, err)
	assert.True(t, b.TotalPrice.Equal(decimal.NewFromInt(125)), "total %s", b.TotalPrice)
}

func TestCreate_NoPickupAvailable(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 1},
		HotelID:      "h-bare",
		PaymentType:  models.PaymentFull,
	})

	assert.ErrorIs(t, err, status.ErrNoPickupAvailable)
}

func TestCreate_StaleAssignmentIsNoPickup(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 1},
		HotelID:      "h-stale",
		PaymentType:  models.PaymentFull,
	})

	assert.ErrorIs(t, err, status.ErrNoPickupAvailable)
}

func TestCreate_FallsBackToLegacyAssignment(t *testing.T) {
	f := newBookingFixture(t)

	b, err := f.svc.Create(context.Background(), models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 1},
		HotelID:      "h-legacy",
		PaymentType:  models.PaymentFull,
	})

	require.NoError(t, err)
	assert.Equal(t, "mp-pier", b.MeetingPointID)
}

func TestCreate_RequiresAdult(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Children: 2},
		HotelID:      "h1",
		PaymentType:  models.PaymentFull,
	})

	assert.ErrorContains(t, err, "at least one adult")
}

func TestConfirm(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 2},
		HotelID:      "h1",
		PaymentType:  models.PaymentFull,
	})
	require.NoError(t, err)

	p, err := f.payments.FindByBookingID(ctx, b.ID)
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, p.ExternalPaymentID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	assert.True(t, confirmed.AmountPaid.Equal(decimal.NewFromInt(100)))

	// the gateway redelivers notifications; a duplicate must be absorbed
	again, err := f.svc.Confirm(ctx, p.ExternalPaymentID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, again.Status)
}

func TestCancel(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t, f.now.Add(72*time.Hour))

	cancelled, err := f.svc.Cancel(ctx, b.ID, models.Caller{ID: "cust1", Role: models.RoleCustomer})

	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.Equal(t, models.TicketExpired, cancelled.TicketStatus)
	assert.Equal(t, 1, f.provider.calls())

	p, err := f.payments.FindByBookingID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, p.Status)
	assert.Equal(t, "re_cancel", p.RefundID)
}

func TestCancel_InsideWindow(t *testing.T) {
	f := newBookingFixture(t)
	b := f.createConfirmed(t, f.now.Add(12*time.Hour))

	_, err := f.svc.Cancel(context.Background(), b.ID, models.Caller{ID: "cust1", Role: models.RoleCustomer})

	assert.ErrorIs(t, err, status.ErrPolicyViolation)
	assert.Equal(t, 0, f.provider.calls())
}

func TestCancel_PendingBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, models.Caller{ID: "cust1", Role: models.RoleCustomer}, CreateBookingRequest{
		TourID:       "tour-island",
		Date:         f.now.Add(72 * time.Hour),
		Participants: models.Participants{Adults: 1},
		HotelID:      "h1",
		PaymentType:  models.PaymentFull,
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, b.ID, models.Caller{ID: "cust1", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, status.ErrPolicyViolation)
}

func TestCancel_RedeemedTicket(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t, f.now.Add(72*time.Hour))

	tickets := NewTicketService(f.bookings)
	_, err := tickets.Validate(ctx, b.ID, models.Caller{ID: "guide1", Role: models.RoleGuide})
	require.NoError(t, err)

	// no retroactive cancel once the guest checked in, admin included
	_, err = f.svc.Cancel(ctx, b.ID, models.Caller{ID: "admin1", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, status.ErrPolicyViolation)
}

func TestCancel_OtherCustomersBooking(t *testing.T) {
	f := newBookingFixture(t)
	b := f.createConfirmed(t, f.now.Add(72*time.Hour))

	_, err := f.svc.Cancel(context.Background(), b.ID, models.Caller{ID: "cust2", Role: models.RoleCustomer})

	assert.ErrorIs(t, err, status.ErrUnauthorized)
}

func TestCancel_AdminOverridesOwnership(t *testing.T) {
	f := newBookingFixture(t)
	b := f.createConfirmed(t, f.now.Add(72*time.Hour))

	cancelled, err := f.svc.Cancel(context.Background(), b.ID, models.Caller{ID: "admin1", Role: models.RoleAdmin})

	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
}

func TestGet_RestrictedToOwner(t *testing.T) {
	f := newBookingFixture(t)
	b := f.createConfirmed(t, f.now.Add(72*time.Hour))

	_, err := f.svc.Get(context.Background(), b.ID, models.Caller{ID: "cust2", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, status.ErrUnauthorized)

	got, err := f.svc.Get(context.Background(), b.ID, models.Caller{ID: "guide1", Role: models.RoleGuide})
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}
