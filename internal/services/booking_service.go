package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"tour-booking/internal/status"
	"tour-booking/internal/store"
	"tour-booking/models"
	"tour-booking/monitoring"
	"tour-booking/utils"
)

// TourCatalog is the read-only tour lookup the ledger consumes. The live
// implementation reads the tours collection; tests plug in a map.
type TourCatalog interface {
	Lookup(ctx context.Context, tourID string) (*models.Tour, error)
}

type BookingConfig struct {
	// CancellationWindow is the minimum lead time before the tour date
	// within which cancellation is still permitted.
	CancellationWindow time.Duration

	// DepositRate applies when a tour defines no deposit amount of its own.
	DepositRate decimal.Decimal
}

// BookingService owns the booking lifecycle:
//
//	pending --(capture notification)--> confirmed --(cancel, within policy)--> cancelled
//
// Creation resolves the pickup point from the hotel's assignment map;
// confirmation is driven by gateway notifications; cancellation refunds
// whatever was actually collected.
type BookingService struct {
	bookings store.BookingStore
	payments store.PaymentStore
	hotels   store.HotelStore
	points   store.MeetingPointStore
	catalog  TourCatalog

	reconciler *PaymentService

	cfg BookingConfig
	now func() time.Time
}

func NewBookingService(
	bookings store.BookingStore,
	payments store.PaymentStore,
	hotels store.HotelStore,
	points store.MeetingPointStore,
	catalog TourCatalog,
	reconciler *PaymentService,
	cfg BookingConfig,
) *BookingService {
	if cfg.CancellationWindow <= 0 {
		cfg.CancellationWindow = 24 * time.Hour
	}
	if cfg.DepositRate.IsZero() {
		cfg.DepositRate = decimal.NewFromFloat(0.20)
	}

	return &BookingService{
		bookings:   bookings,
		payments:   payments,
		hotels:     hotels,
		points:     points,
		catalog:    catalog,
		reconciler: reconciler,
		cfg:        cfg,
		now:        time.Now,
	}
}

type CreateBookingRequest struct {
	TourID       string              `json:"tour_id"`
	Date         time.Time           `json:"date"`
	Participants models.Participants `json:"participants"`
	HotelID      string              `json:"hotel_id"`
	PaymentType  models.PaymentType  `json:"payment_type"`
}

// Create books a tour for the caller: resolves the pickup point, prices the
// party, and persists booking plus payment in pending state. Confirmation
// happens later, when the gateway reports the capture.
func (s *BookingService) Create(ctx context.Context, caller models.Caller, req CreateBookingRequest) (*models.Booking, error) {
	if caller.Role != models.RoleCustomer && caller.Role != models.RoleAdmin {
		return nil, status.ErrUnauthorized
	}
	if req.Participants.Adults < 1 {
		return nil, fmt.Errorf("at least one adult is required")
	}
	if req.PaymentType != models.PaymentFull && req.PaymentType != models.PaymentDeposit {
		return nil, fmt.Errorf("unknown payment type %q", req.PaymentType)
	}

	tour, err := s.catalog.Lookup(ctx, req.TourID)
	if err != nil {
		return nil, fmt.Errorf("tour %s: %w", req.TourID, err)
	}

	hotel, err := s.hotels.FindByID(ctx, req.HotelID)
	if err != nil {
		return nil, fmt.Errorf("hotel %s: %w", req.HotelID, err)
	}

	meetingPoint, err := s.resolvePickup(ctx, hotel, tour.Region)
	if err != nil {
		return nil, err
	}

	totalPrice := tourPrice(tour.Price, req.Participants)

	amountPaid := decimal.Zero
	if req.PaymentType == models.PaymentDeposit {
		amountPaid = tour.Deposit
		if amountPaid.IsZero() {
			amountPaid = totalPrice.Mul(s.cfg.DepositRate).Round(2)
		}
	}

	booking := &models.Booking{
		CustomerID:       caller.ID,
		TourID:           tour.ID,
		TourTitle:        tour.Title,
		Date:             req.Date,
		Participants:     req.Participants,
		HotelID:          hotel.ID,
		HotelName:        hotel.Name,
		MeetingPointID:   meetingPoint.ID,
		MeetingPointName: meetingPoint.Name,
		TotalPrice:       totalPrice,
		AmountPaid:       amountPaid,
		PaymentType:      req.PaymentType,
		Status:           models.BookingPending,
		TicketStatus:     models.TicketValid,
	}
	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, err
	}

	ref, err := utils.GenerateCode(6)
	if err != nil {
		return nil, fmt.Errorf("generate payment ref: %w", err)
	}
	payment := &models.Payment{
		BookingID:         booking.ID,
		ExternalPaymentID: fmt.Sprintf("pay_%s_%s", booking.ID, ref),
		CapturedAmount:    decimal.Zero,
		Status:            models.PaymentPending,
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, err
	}

	monitoring.TrackBookingOperation("create", "ok")
	return booking, nil
}

// Confirm applies a gateway capture notification: marks the payment
// succeeded and promotes the booking from pending to confirmed with the
// captured amount. Duplicate notifications are absorbed.
func (s *BookingService) Confirm(ctx context.Context, externalPaymentID string, captured decimal.Decimal) (*models.Booking, error) {
	p, err := s.payments.FindByExternalID(ctx, externalPaymentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.reconciler.MarkSucceeded(ctx, p.BookingID, captured, externalPaymentID); err != nil {
		return nil, err
	}

	booking, err := s.bookings.Transition(ctx, p.BookingID,
		store.BookingPrecondition{Status: models.BookingPending},
		func(b *models.Booking) {
			b.Status = models.BookingConfirmed
			b.AmountPaid = captured
		})
	if errors.Is(err, status.ErrConflict) {
		current, ferr := s.bookings.FindByID(ctx, p.BookingID)
		if ferr == nil && current.Status == models.BookingConfirmed {
			return current, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	monitoring.TrackBookingOperation("confirm", "ok")
	log.Printf("booking %s confirmed, captured %s", booking.ID, captured)
	return booking, nil
}

// Cancel voids a confirmed booking within the policy window: the ticket
// expires and whatever was collected is refunded in full. The unpaid
// remainder is simply dropped, never billed.
func (s *BookingService) Cancel(ctx context.Context, bookingID string, caller models.Caller) (*models.Booking, error) {
	if caller.Role != models.RoleCustomer && caller.Role != models.RoleAdmin {
		return nil, status.ErrUnauthorized
	}

	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleCustomer && b.CustomerID != caller.ID {
		return nil, status.ErrUnauthorized
	}

	// A checked-in guest cannot retroactively cancel, also not via an
	// admin override.
	if b.TicketStatus == models.TicketRedeemed {
		return nil, status.ErrPolicyViolation
	}
	if b.Status != models.BookingConfirmed {
		return nil, status.ErrPolicyViolation
	}
	if b.Date.Sub(s.now()) < s.cfg.CancellationWindow {
		return nil, status.ErrPolicyViolation
	}

	cancelled, err := s.bookings.Transition(ctx, bookingID,
		store.BookingPrecondition{Status: models.BookingConfirmed, TicketStatus: models.TicketValid},
		func(b *models.Booking) {
			b.Status = models.BookingCancelled
			b.TicketStatus = models.TicketExpired
		})
	if err != nil {
		return nil, err
	}

	if _, err := s.reconciler.Refund(ctx, bookingID); err != nil {
		// the booking is cancelled either way; the refund stays retryable
		// through the reconciler because it is idempotent
		monitoring.TrackBookingOperation("cancel", "refund_error")
		return cancelled, fmt.Errorf("booking %s cancelled but refund failed: %w", bookingID, err)
	}

	monitoring.TrackBookingOperation("cancel", "ok")
	return cancelled, nil
}

// Get returns a booking, restricted to its owner for customer callers.
func (s *BookingService) Get(ctx context.Context, bookingID string, caller models.Caller) (*models.Booking, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleCustomer && b.CustomerID != caller.ID {
		return nil, status.ErrUnauthorized
	}
	return b, nil
}

func (s *BookingService) resolvePickup(ctx context.Context, hotel *models.Hotel, region models.Region) (*models.MeetingPoint, error) {
	id := hotel.AssignedMeetingPoints[region]
	if id == "" {
		// legacy single global assignment, from before regional runs
		id = hotel.AssignedMeetingPointID
	}
	if id == "" {
		return nil, fmt.Errorf("hotel %s, region %s: %w", hotel.ID, region, status.ErrNoPickupAvailable)
	}

	mp, err := s.points.FindByID(ctx, id)
	if err != nil {
		// a stale assignment pointing at a deleted meeting point is no
		// pickup at all
		if errors.Is(err, status.ErrNotFound) {
			return nil, fmt.Errorf("hotel %s, stale assignment %s: %w", hotel.ID, id, status.ErrNoPickupAvailable)
		}
		return nil, err
	}
	return mp, nil
}

// tourPrice prices a party: adults full price, children half, infants free.
func tourPrice(price decimal.Decimal, p models.Participants) decimal.Decimal {
	adults := price.Mul(decimal.NewFromInt(int64(p.Adults)))
	children := price.Div(decimal.NewFromInt(2)).Mul(decimal.NewFromInt(int64(p.Children)))
	return adults.Add(children).Round(2)
}
