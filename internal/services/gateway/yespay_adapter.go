package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tour-booking/internal/services/gateway/yespay"
)

// YesPayAdapter wraps the YesPay implementation to conform to Provider.
type YesPayAdapter struct {
	client *yespay.Yespay

	// raw receives provider-native transactions; forward translates them.
	raw chan *yespay.Transaction
}

func NewYesPayAdapter(ctx context.Context, config *yespay.Config) (*YesPayAdapter, error) {
	client, err := yespay.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create YesPay client: %w", err)
	}

	return &YesPayAdapter{
		client: client,
	}, nil
}

func (a *YesPayAdapter) Name() ProviderName {
	return ProviderYesPay
}

func (a *YesPayAdapter) Refund(ctx context.Context, externalPaymentID string, amount decimal.Decimal) (string, error) {
	return a.client.Refund(ctx, externalPaymentID, amount)
}

func (a *YesPayAdapter) CheckTransaction(ctx context.Context, externalPaymentID string) (*Transaction, error) {
	tran, err := a.client.CheckTransaction(ctx, externalPaymentID)
	if err != nil {
		return nil, err
	}
	return fromYesPay(tran), nil
}

func (a *YesPayAdapter) SetTransactionChannel(ch chan *Transaction) {
	a.raw = make(chan *yespay.Transaction, cap(ch))
	a.client.SetTranChannel(a.raw)

	go func() {
		for tran := range a.raw {
			ch <- fromYesPay(tran)
		}
	}()
}

// WatchPayment subscribes to capture events for a newly issued bill.
func (a *YesPayAdapter) WatchPayment(ctx context.Context, externalPaymentID string) {
	a.client.WatchPayment(ctx, externalPaymentID)
}

func (a *YesPayAdapter) Close(ctx context.Context) error {
	err := a.client.Close(ctx)
	if a.raw != nil {
		close(a.raw)
	}
	return err
}

func fromYesPay(t *yespay.Transaction) *Transaction {
	return &Transaction{
		ExternalPaymentID: t.ExternalPaymentID,
		RefID:             t.RefID,
		Amount:            t.Amount,
		Payer:             t.Payer,
		CreatedAt:         t.CreatedAt,
	}
}
