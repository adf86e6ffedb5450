package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tour-booking/internal/status"
	"tour-booking/models"
	"tour-booking/utils"
)

// MemoryBookings is the in-memory BookingStore. The single mutex makes every
// Transition an atomic compare-and-swap, which is exactly the contract the
// PocketBase implementation provides through conditional UPDATEs.
type MemoryBookings struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
}

func NewMemoryBookings() *MemoryBookings {
	return &MemoryBookings{bookings: map[string]models.Booking{}}
}

func (s *MemoryBookings) FindByID(_ context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return cloneBooking(&b), nil
}

func (s *MemoryBookings) Save(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return fmt.Errorf("memory: generate booking id: %w", err)
		}
		b.ID = id
	}
	s.bookings[b.ID] = *cloneBooking(b)
	return nil
}

func (s *MemoryBookings) Transition(_ context.Context, id string, pre BookingPrecondition, mutate func(*models.Booking)) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	if pre.Status != "" && stored.Status != pre.Status {
		return nil, status.ErrConflict
	}
	if pre.TicketStatus != "" && stored.TicketStatus != pre.TicketStatus {
		return nil, status.ErrConflict
	}

	b := cloneBooking(&stored)
	mutate(b)
	s.bookings[id] = *cloneBooking(b)
	return b, nil
}

func cloneBooking(b *models.Booking) *models.Booking {
	out := *b
	if b.RedeemedAt != nil {
		t := *b.RedeemedAt
		out.RedeemedAt = &t
	}
	return &out
}

type MemoryPayments struct {
	mu       sync.Mutex
	payments map[string]models.Payment
}

func NewMemoryPayments() *MemoryPayments {
	return &MemoryPayments{payments: map[string]models.Payment{}}
}

func (s *MemoryPayments) FindByBookingID(_ context.Context, bookingID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out := p
			return &out, nil
		}
	}
	return nil, status.ErrNotFound
}

func (s *MemoryPayments) FindByExternalID(_ context.Context, externalPaymentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.ExternalPaymentID == externalPaymentID {
			out := p
			return &out, nil
		}
	}
	return nil, status.ErrNotFound
}

func (s *MemoryPayments) Save(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return fmt.Errorf("memory: generate payment id: %w", err)
		}
		p.ID = id
	}
	s.payments[p.ID] = *p
	return nil
}

func (s *MemoryPayments) Transition(_ context.Context, id string, from, to models.PaymentStatus, mutate func(*models.Payment)) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	if stored.Status != from {
		return nil, status.ErrConflict
	}

	p := stored
	mutate(&p)
	p.Status = to
	s.payments[id] = p
	out := p
	return &out, nil
}

type MemoryHotels struct {
	mu     sync.Mutex
	hotels map[string]models.Hotel
}

func NewMemoryHotels(hotels ...models.Hotel) *MemoryHotels {
	s := &MemoryHotels{hotels: map[string]models.Hotel{}}
	for _, h := range hotels {
		s.hotels[h.ID] = h
	}
	return s
}

func (s *MemoryHotels) FindByID(_ context.Context, id string) (*models.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hotels[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return cloneHotel(&h), nil
}

func (s *MemoryHotels) FindAll(_ context.Context) ([]models.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Hotel, 0, len(s.hotels))
	for _, h := range s.hotels {
		out = append(out, *cloneHotel(&h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryHotels) UpdateAssignments(_ context.Context, hotelID string, perRegion map[models.Region]string, globalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hotels[hotelID]
	if !ok {
		return status.ErrNotFound
	}
	h.AssignedMeetingPoints = perRegion
	h.AssignedMeetingPointID = globalID
	s.hotels[hotelID] = *cloneHotel(&h)
	return nil
}

func cloneHotel(h *models.Hotel) *models.Hotel {
	out := *h
	if h.Coordinates != nil {
		c := *h.Coordinates
		out.Coordinates = &c
	}
	if h.AssignedMeetingPoints != nil {
		m := make(map[models.Region]string, len(h.AssignedMeetingPoints))
		for k, v := range h.AssignedMeetingPoints {
			m[k] = v
		}
		out.AssignedMeetingPoints = m
	}
	return &out
}

type MemoryMeetingPoints struct {
	mu     sync.Mutex
	points map[string]models.MeetingPoint
}

func NewMemoryMeetingPoints(points ...models.MeetingPoint) *MemoryMeetingPoints {
	s := &MemoryMeetingPoints{points: map[string]models.MeetingPoint{}}
	for _, mp := range points {
		s.points[mp.ID] = mp
	}
	return s
}

func (s *MemoryMeetingPoints) FindByID(_ context.Context, id string) (*models.MeetingPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mp, ok := s.points[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	out := mp
	return &out, nil
}

func (s *MemoryMeetingPoints) FindAll(_ context.Context) ([]models.MeetingPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.MeetingPoint, 0, len(s.points))
	for _, mp := range s.points {
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryMeetingPoints) Save(_ context.Context, mp *models.MeetingPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mp.ID == "" {
		id, err := utils.GenerateCode(8)
		if err != nil {
			return fmt.Errorf("memory: generate meeting point id: %w", err)
		}
		mp.ID = id
	}
	s.points[mp.ID] = *mp
	return nil
}
