package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type TicketStatus string

const (
	TicketValid    TicketStatus = "valid"
	TicketRedeemed TicketStatus = "redeemed"
	TicketExpired  TicketStatus = "expired"
)

type PaymentType string

const (
	PaymentFull    PaymentType = "full"
	PaymentDeposit PaymentType = "deposit"
)

// Participants is the party composition of a booking. Children ride half
// price, infants ride free.
type Participants struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

func (p Participants) Total() int {
	return p.Adults + p.Children + p.Infants
}

type Booking struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customer_id"`
	TourID           string          `json:"tour_id"`
	TourTitle        string          `json:"tour_title"`
	Date             time.Time       `json:"date"`
	Participants     Participants    `json:"participants"`
	HotelID          string          `json:"hotel_id"`
	HotelName        string          `json:"hotel_name"`
	MeetingPointID   string          `json:"meeting_point_id"`
	MeetingPointName string          `json:"meeting_point_name"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	PaymentType      PaymentType     `json:"payment_type"`
	Status           BookingStatus   `json:"status"`
	TicketStatus     TicketStatus    `json:"ticket_status"`
	RedeemedAt       *time.Time      `json:"redeemed_at,omitempty"`
	RedeemedBy       string          `json:"redeemed_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AmountDue is the balance still owed on-site. Derived, never stored, and
// never negative even if the gateway over-captures.
func (b *Booking) AmountDue() decimal.Decimal {
	due := b.TotalPrice.Sub(b.AmountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment tracks the monetary side of a booking against the external
// gateway. One payment per booking.
type Payment struct {
	ID                string          `json:"id"`
	BookingID         string          `json:"booking_id"`
	ExternalPaymentID string          `json:"external_payment_id"`
	CapturedAmount    decimal.Decimal `json:"captured_amount"`
	Status            PaymentStatus   `json:"status"`
	RefundID          string          `json:"refund_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleGuide    Role = "guide"
	RoleAdmin    Role = "admin"
)

// Caller is the pre-verified identity behind a mutating call.
type Caller struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Tour is the read-only view the booking core needs from the tour catalog.
type Tour struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Region  Region          `json:"region"`
	Price   decimal.Decimal `json:"price"`
	Deposit decimal.Decimal `json:"deposit"`
}
