package store

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"tour-booking/internal/status"
	"tour-booking/models"
)

// PBBookings stores bookings in the app database. State transitions go
// through a conditional UPDATE so that two racing writers cannot both win.
type PBBookings struct {
	app core.App
}

func NewPBBookings(app core.App) *PBBookings {
	return &PBBookings{app: app}
}

func (s *PBBookings) FindByID(_ context.Context, id string) (*models.Booking, error) {
	rec, err := s.app.FindRecordById("bookings", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return bookingFromRecord(rec)
}

func (s *PBBookings) Save(_ context.Context, b *models.Booking) error {
	collection, err := s.app.FindCollectionByNameOrId("bookings")
	if err != nil {
		return fmt.Errorf("bookings: find collection: %w", err)
	}

	rec := core.NewRecord(collection)
	applyBookingToRecord(rec, b)
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("bookings: save: %w", err)
	}

	b.ID = rec.Id
	b.CreatedAt = rec.GetDateTime("created").Time()
	b.UpdatedAt = rec.GetDateTime("updated").Time()
	return nil
}

func (s *PBBookings) Transition(ctx context.Context, id string, pre BookingPrecondition, mutate func(*models.Booking)) (*models.Booking, error) {
	rec, err := s.app.FindRecordById("bookings", id)
	if err != nil {
		return nil, status.ErrNotFound
	}

	b, err := bookingFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if pre.Status != "" && b.Status != pre.Status {
		return nil, status.ErrConflict
	}
	if pre.TicketStatus != "" && b.TicketStatus != pre.TicketStatus {
		return nil, status.ErrConflict
	}

	prevStatus, prevTicket := b.Status, b.TicketStatus
	mutate(b)

	redeemedAt := ""
	if b.RedeemedAt != nil {
		dt, err := types.ParseDateTime(*b.RedeemedAt)
		if err != nil {
			return nil, fmt.Errorf("bookings: redeemed_at: %w", err)
		}
		redeemedAt = dt.String()
	}

	// The WHERE clause re-checks the snapshot we mutated from, so a write
	// that raced us leaves zero rows affected instead of clobbering.
	q := s.app.DB().NewQuery(`
		UPDATE bookings
		SET status = {:status},
		    ticket_status = {:ticketStatus},
		    amount_paid = {:amountPaid},
		    redeemed_at = {:redeemedAt},
		    redeemed_by = {:redeemedBy},
		    updated = {:updated}
		WHERE id = {:id}
		  AND status = {:prevStatus}
		  AND ticket_status = {:prevTicket}`)
	q.Bind(dbx.Params{
		"status":       string(b.Status),
		"ticketStatus": string(b.TicketStatus),
		"amountPaid":   b.AmountPaid.String(),
		"redeemedAt":   redeemedAt,
		"redeemedBy":   b.RedeemedBy,
		"updated":      types.NowDateTime().String(),
		"id":           id,
		"prevStatus":   string(prevStatus),
		"prevTicket":   string(prevTicket),
	})

	res, err := q.WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("bookings: transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("bookings: transition rows: %w", err)
	}
	if affected == 0 {
		return nil, status.ErrConflict
	}

	return b, nil
}

func bookingFromRecord(rec *core.Record) (*models.Booking, error) {
	totalPrice, err := decimal.NewFromString(rec.GetString("total_price"))
	if err != nil {
		return nil, fmt.Errorf("bookings: total_price of %s: %w", rec.Id, err)
	}
	amountPaid, err := decimal.NewFromString(rec.GetString("amount_paid"))
	if err != nil {
		return nil, fmt.Errorf("bookings: amount_paid of %s: %w", rec.Id, err)
	}

	b := &models.Booking{
		ID:         rec.Id,
		CustomerID: rec.GetString("customer_id"),
		TourID:     rec.GetString("tour_id"),
		TourTitle:  rec.GetString("tour_title"),
		Date:       rec.GetDateTime("date").Time(),
		Participants: models.Participants{
			Adults:   rec.GetInt("adults"),
			Children: rec.GetInt("children"),
			Infants:  rec.GetInt("infants"),
		},
		HotelID:          rec.GetString("hotel_id"),
		HotelName:        rec.GetString("hotel_name"),
		MeetingPointID:   rec.GetString("meeting_point_id"),
		MeetingPointName: rec.GetString("meeting_point_name"),
		TotalPrice:       totalPrice,
		AmountPaid:       amountPaid,
		PaymentType:      models.PaymentType(rec.GetString("payment_type")),
		Status:           models.BookingStatus(rec.GetString("status")),
		TicketStatus:     models.TicketStatus(rec.GetString("ticket_status")),
		RedeemedBy:       rec.GetString("redeemed_by"),
		CreatedAt:        rec.GetDateTime("created").Time(),
		UpdatedAt:        rec.GetDateTime("updated").Time(),
	}

	if dt := rec.GetDateTime("redeemed_at"); !dt.IsZero() {
		t := dt.Time()
		b.RedeemedAt = &t
	}

	return b, nil
}

func applyBookingToRecord(rec *core.Record, b *models.Booking) {
	rec.Set("customer_id", b.CustomerID)
	rec.Set("tour_id", b.TourID)
	rec.Set("tour_title", b.TourTitle)
	rec.Set("date", b.Date)
	rec.Set("adults", b.Participants.Adults)
	rec.Set("children", b.Participants.Children)
	rec.Set("infants", b.Participants.Infants)
	rec.Set("hotel_id", b.HotelID)
	rec.Set("hotel_name", b.HotelName)
	rec.Set("meeting_point_id", b.MeetingPointID)
	rec.Set("meeting_point_name", b.MeetingPointName)
	rec.Set("total_price", b.TotalPrice.String())
	rec.Set("amount_paid", b.AmountPaid.String())
	rec.Set("payment_type", string(b.PaymentType))
	rec.Set("status", string(b.Status))
	rec.Set("ticket_status", string(b.TicketStatus))
	rec.Set("redeemed_by", b.RedeemedBy)
	if b.RedeemedAt != nil {
		rec.Set("redeemed_at", *b.RedeemedAt)
	}
}

type PBPayments struct {
	app core.App
}

func NewPBPayments(app core.App) *PBPayments {
	return &PBPayments{app: app}
}

func (s *PBPayments) FindByBookingID(_ context.Context, bookingID string) (*models.Payment, error) {
	rec, err := s.app.FindFirstRecordByData("payments", "booking_id", bookingID)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return paymentFromRecord(rec)
}

func (s *PBPayments) FindByExternalID(_ context.Context, externalPaymentID string) (*models.Payment, error) {
	rec, err := s.app.FindFirstRecordByData("payments", "external_payment_id", externalPaymentID)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return paymentFromRecord(rec)
}

func (s *PBPayments) Save(_ context.Context, p *models.Payment) error {
	collection, err := s.app.FindCollectionByNameOrId("payments")
	if err != nil {
		return fmt.Errorf("payments: find collection: %w", err)
	}

	rec := core.NewRecord(collection)
	rec.Set("booking_id", p.BookingID)
	rec.Set("external_payment_id", p.ExternalPaymentID)
	rec.Set("captured_amount", p.CapturedAmount.String())
	rec.Set("status", string(p.Status))
	rec.Set("refund_id", p.RefundID)
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("payments: save: %w", err)
	}

	p.ID = rec.Id
	p.CreatedAt = rec.GetDateTime("created").Time()
	p.UpdatedAt = rec.GetDateTime("updated").Time()
	return nil
}

func (s *PBPayments) Transition(ctx context.Context, id string, from, to models.PaymentStatus, mutate func(*models.Payment)) (*models.Payment, error) {
	rec, err := s.app.FindRecordById("payments", id)
	if err != nil {
		return nil, status.ErrNotFound
	}

	p, err := paymentFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if p.Status != from {
		return nil, status.ErrConflict
	}

	mutate(p)
	p.Status = to

	q := s.app.DB().NewQuery(`
		UPDATE payments
		SET status = {:status},
		    captured_amount = {:captured},
		    refund_id = {:refundId},
		    updated = {:updated}
		WHERE id = {:id}
		  AND status = {:prevStatus}`)
	q.Bind(dbx.Params{
		"status":     string(p.Status),
		"captured":   p.CapturedAmount.String(),
		"refundId":   p.RefundID,
		"updated":    types.NowDateTime().String(),
		"id":         id,
		"prevStatus": string(from),
	})

	res, err := q.WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("payments: transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("payments: transition rows: %w", err)
	}
	if affected == 0 {
		return nil, status.ErrConflict
	}

	return p, nil
}

func paymentFromRecord(rec *core.Record) (*models.Payment, error) {
	captured, err := decimal.NewFromString(rec.GetString("captured_amount"))
	if err != nil {
		return nil, fmt.Errorf("payments: captured_amount of %s: %w", rec.Id, err)
	}

	return &models.Payment{
		ID:                rec.Id,
		BookingID:         rec.GetString("booking_id"),
		ExternalPaymentID: rec.GetString("external_payment_id"),
		CapturedAmount:    captured,
		Status:            models.PaymentStatus(rec.GetString("status")),
		RefundID:          rec.GetString("refund_id"),
		CreatedAt:         rec.GetDateTime("created").Time(),
		UpdatedAt:         rec.GetDateTime("updated").Time(),
	}, nil
}

type PBHotels struct {
	app core.App
}

func NewPBHotels(app core.App) *PBHotels {
	return &PBHotels{app: app}
}

func (s *PBHotels) FindByID(_ context.Context, id string) (*models.Hotel, error) {
	rec, err := s.app.FindRecordById("hotels", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return hotelFromRecord(rec)
}

func (s *PBHotels) FindAll(_ context.Context) ([]models.Hotel, error) {
	recs, err := s.app.FindAllRecords("hotels")
	if err != nil {
		return nil, fmt.Errorf("hotels: find all: %w", err)
	}

	out := make([]models.Hotel, 0, len(recs))
	for _, rec := range recs {
		h, err := hotelFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, nil
}

func (s *PBHotels) UpdateAssignments(_ context.Context, hotelID string, perRegion map[models.Region]string, globalID string) error {
	rec, err := s.app.FindRecordById("hotels", hotelID)
	if err != nil {
		return status.ErrNotFound
	}

	rec.Set("assigned_meeting_points", perRegion)
	rec.Set("assigned_meeting_point_id", globalID)
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("hotels: update assignments: %w", err)
	}
	return nil
}

func hotelFromRecord(rec *core.Record) (*models.Hotel, error) {
	h := &models.Hotel{
		ID:                     rec.Id,
		Name:                   rec.GetString("name"),
		Region:                 models.Region(rec.GetString("region")),
		AssignedMeetingPointID: rec.GetString("assigned_meeting_point_id"),
	}

	var coords models.Coordinates
	if err := rec.UnmarshalJSONField("coordinates", &coords); err == nil && (coords.Lat != 0 || coords.Lng != 0) {
		h.Coordinates = &coords
	}

	assignments := map[models.Region]string{}
	if err := rec.UnmarshalJSONField("assigned_meeting_points", &assignments); err == nil && len(assignments) > 0 {
		h.AssignedMeetingPoints = assignments
	}

	return h, nil
}

type PBMeetingPoints struct {
	app core.App
}

func NewPBMeetingPoints(app core.App) *PBMeetingPoints {
	return &PBMeetingPoints{app: app}
}

func (s *PBMeetingPoints) FindByID(_ context.Context, id string) (*models.MeetingPoint, error) {
	rec, err := s.app.FindRecordById("meeting_points", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return meetingPointFromRecord(rec), nil
}

func (s *PBMeetingPoints) FindAll(_ context.Context) ([]models.MeetingPoint, error) {
	recs, err := s.app.FindAllRecords("meeting_points")
	if err != nil {
		return nil, fmt.Errorf("meeting_points: find all: %w", err)
	}

	out := make([]models.MeetingPoint, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *meetingPointFromRecord(rec))
	}
	return out, nil
}

func (s *PBMeetingPoints) Save(_ context.Context, mp *models.MeetingPoint) error {
	var rec *core.Record

	if mp.ID != "" {
		existing, err := s.app.FindRecordById("meeting_points", mp.ID)
		if err != nil {
			return status.ErrNotFound
		}
		rec = existing
	} else {
		collection, err := s.app.FindCollectionByNameOrId("meeting_points")
		if err != nil {
			return fmt.Errorf("meeting_points: find collection: %w", err)
		}
		rec = core.NewRecord(collection)
	}

	rec.Set("name", mp.Name)
	rec.Set("region", string(mp.Region))
	rec.Set("source_link", mp.SourceLink)
	if mp.Coordinates != nil {
		rec.Set("coordinates", mp.Coordinates)
	}
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("meeting_points: save: %w", err)
	}

	mp.ID = rec.Id
	return nil
}

func meetingPointFromRecord(rec *core.Record) *models.MeetingPoint {
	mp := &models.MeetingPoint{
		ID:         rec.Id,
		Name:       rec.GetString("name"),
		Region:     models.Region(rec.GetString("region")),
		SourceLink: rec.GetString("source_link"),
	}

	var coords models.Coordinates
	if err := rec.UnmarshalJSONField("coordinates", &coords); err == nil && (coords.Lat != 0 || coords.Lng != 0) {
		mp.Coordinates = &coords
	}

	return mp
}

// PBTourCatalog is the read-only tour lookup backed by the tours collection
// the marketing site already maintains.
type PBTourCatalog struct {
	app core.App
}

func NewPBTourCatalog(app core.App) *PBTourCatalog {
	return &PBTourCatalog{app: app}
}

func (s *PBTourCatalog) Lookup(_ context.Context, tourID string) (*models.Tour, error) {
	rec, err := s.app.FindRecordById("tours", tourID)
	if err != nil {
		return nil, status.ErrNotFound
	}

	return &models.Tour{
		ID:      rec.Id,
		Title:   rec.GetString("title"),
		Region:  models.Region(rec.GetString("region")),
		Price:   decimal.NewFromFloat(rec.GetFloat("price")),
		Deposit: decimal.NewFromFloat(rec.GetFloat("deposit")),
	}, nil
}
