// Package gateway abstracts the external payment gateway behind a provider
// interface so the reconciler never talks to a concrete bank API directly.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tour-booking/internal/services/gateway/yespay"
)

// ProviderName identifies a supported gateway backend.
type ProviderName string

const (
	ProviderYesPay ProviderName = "yespay"
)

// Transaction is a gateway-side capture event, normalized across providers.
type Transaction struct {
	// ExternalPaymentID is the bill number the core generated at booking
	// time; it doubles as the idempotency key for every gateway call.
	ExternalPaymentID string          `json:"external_payment_id"`
	RefID             string          `json:"ref_id"`
	Amount            decimal.Decimal `json:"amount"`
	Payer             string          `json:"payer"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Provider is the common surface of all gateway backends.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// Refund returns the captured amount for an external payment id and
	// returns the gateway refund id. Safe to retry: the external payment id
	// is the idempotency key.
	Refund(ctx context.Context, externalPaymentID string, amount decimal.Decimal) (string, error)

	// CheckTransaction fetches the current gateway-side state of a payment.
	CheckTransaction(ctx context.Context, externalPaymentID string) (*Transaction, error)

	// SetTransactionChannel sets the channel capture notifications are
	// delivered on.
	SetTransactionChannel(ch chan *Transaction)

	// Close gracefully closes provider connections.
	Close(ctx context.Context) error
}

// Factory creates provider instances from per-provider configs.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(ctx context.Context, name ProviderName, config any) (Provider, error) {
	switch name {
	case ProviderYesPay:
		cfg, ok := config.(*yespay.Config)
		if !ok {
			return nil, fmt.Errorf("invalid YesPay config type, expected *yespay.Config")
		}
		return NewYesPayAdapter(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported gateway provider: %s", name)
	}
}

func (f *Factory) SupportedProviders() []ProviderName {
	return []ProviderName{ProviderYesPay}
}
