// Package yespay implements the YesPay payment gateway backend: an HMAC
// signed HTTP API for refunds and status checks, plus a PubNub channel the
// bank pushes capture notifications on.
package yespay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL string `json:"baseUrl" mapstructure:"base_url"`

	PartnerID string `json:"partnerId" mapstructure:"partner_id"`
	ClientID  string `json:"clientId" mapstructure:"client_id"`
	ClientKey string `json:"clientKey" mapstructure:"client_key"`
	HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`

	MerchantID string `json:"merchantId" mapstructure:"merchant_id"`

	PNSubKey    string `json:"pn_subkey" mapstructure:"pn_subkey"`
	PNSubSecret string `json:"pn_subsecret" mapstructure:"pn_subsecret"`
	PNUUID      string `json:"pn_uuid" mapstructure:"pn_uuid"`
	PNChannel   string `json:"pn_channel" mapstructure:"pn_channel"`
	PNCipherKey string `json:"pn_cipherKey" mapstructure:"pn_cipherkey"`
}

// Transaction is a capture event as YesPay reports it.
type Transaction struct {
	RefID             string
	ExternalPaymentID string
	Payer             string
	AccountNumber     string
	Amount            decimal.Decimal
	CreatedAt         time.Time
}

type payload struct {
	RefID             string          `json:"refNo"`
	ExternalPaymentID string          `json:"billNumber"`
	Payer             string          `json:"sourceName"`
	AccountNumber     string          `json:"sourceAccount"`
	Amount            decimal.Decimal `json:"txnAmount"`
	CreatedAt         string          `json:"txnDateTime"`
}

func (p *payload) ToDomain() (*Transaction, error) {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", p.CreatedAt, time.Local)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		RefID:             p.RefID,
		ExternalPaymentID: p.ExternalPaymentID,
		Payer:             p.Payer,
		AccountNumber:     p.AccountNumber,
		Amount:            p.Amount,
		CreatedAt:         ts,
	}, nil
}

type Yespay struct {
	MerchantID string

	pnSubKey    string
	pnSubSecret string
	pnUUID      string
	pnChannels  []string
	pnCipherKey string

	sub *subscribe

	client *Client
}

// New connects to the YesPay backend, starts the token refresher and
// subscribes to the bank's notification channel.
func New(ctx context.Context, cfg *Config) (*Yespay, error) {
	client := newClient(ctx, &ClientConfig{
		BaseURL:   cfg.BaseURL,
		PartnerID: cfg.PartnerID,
		ClientID:  cfg.ClientID,
		ClientKey: cfg.ClientKey,
		HMACKey:   cfg.HMACKey,
	})

	// Connect to the YesPay backend. Get access token.
	token, err := client.connect(ctx)
	if err != nil {
		return nil, err
	}
	client.setAccessToken(token)

	// Notify access token expired.
	go client.notifyAccessTokenExpired(ctx)

	y := &Yespay{
		MerchantID: cfg.MerchantID,

		pnSubKey:    cfg.PNSubKey,
		pnSubSecret: cfg.PNSubSecret,
		pnUUID:      cfg.PNUUID,
		pnChannels:  []string{cfg.PNChannel},
		pnCipherKey: cfg.PNCipherKey,

		client: client,
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(y.pnUUID))
	pnCfg.SubscribeKey = y.pnSubKey
	pnCfg.CipherKey = y.pnCipherKey
	pnCfg.SecretKey = y.pnSubSecret

	newSub, err := y.newSubscription(ctx, pnCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to YesPay's PubNub channel: %v", err)
	}

	newSub.pn.AddListener(newSub.lis)
	newSub.pn.Subscribe().Channels(y.pnChannels).Execute()
	y.sub = newSub

	return y, nil
}

type subscribe struct {
	pn  *pubnub.PubNub
	lis *pubnub.Listener
	ch  chan *Transaction
}

func (y *Yespay) newSubscription(ctx context.Context, pnCfg *pubnub.Config) (*subscribe, error) {
	sub := &subscribe{
		pn:  pubnub.NewPubNub(pnCfg),
		lis: pubnub.NewListener(),
	}

	go sub.processSubscription(ctx)

	return sub, nil
}

func (s *subscribe) processSubscription(ctx context.Context) error {
	listener := s.lis
	for {
		select {
		case st := <-listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("disconnected from pubnub")

			default:
				log.Printf("pubnub status category: %v", st.Category)
			}

		case message := <-listener.Message:
			log.Println("message received pubnub: ", message.Message)

			raw, ok := message.Message.(string)
			if !ok {
				log.Println("pubnub message is not a string payload")
				continue
			}

			var p payload
			dec := json.NewDecoder(strings.NewReader(raw))
			if err := dec.Decode(&p); err != nil {
				log.Println(err)
				continue
			}

			tran, err := p.ToDomain()
			if err != nil {
				log.Println(err)
				continue
			}
			if s.ch != nil {
				s.ch <- tran
			}

		case <-ctx.Done():
			log.Println("close subscribe")
			return nil
		}
	}
}

// addChannel subscribes to the per-payment channel the bank publishes
// capture events on, replaying the last two minutes.
func (y *Yespay) addChannel(_ context.Context, externalPaymentID string) {
	channel := fmt.Sprintf("%s_%s", y.MerchantID, externalPaymentID)

	tt := time.Now().Add(time.Duration(-2*time.Minute)).Unix() * 10000

	y.sub.pn.Subscribe().Channels([]string{channel}).Timetoken(tt).Execute()
}

func (y *Yespay) Unsubscribe(ctx context.Context, externalPaymentID string) {
	y.sub.pn.Unsubscribe().Channels([]string{fmt.Sprintf("%s_%s", y.MerchantID, externalPaymentID)}).Execute()
}

func (y *Yespay) SetTranChannel(ch chan *Transaction) {
	y.sub.ch = ch
}

// WatchPayment starts listening for capture events on a newly issued bill.
func (y *Yespay) WatchPayment(ctx context.Context, externalPaymentID string) {
	y.addChannel(ctx, externalPaymentID)
}

func (y *Yespay) CheckTransaction(ctx context.Context, externalPaymentID string) (*Transaction, error) {
	return y.client.checkTransaction(ctx, externalPaymentID)
}

func (y *Yespay) Refund(ctx context.Context, externalPaymentID string, amount decimal.Decimal) (string, error) {
	return y.client.refund(ctx, externalPaymentID, amount)
}

func (y *Yespay) Close(_ context.Context) error {
	y.sub.pn.UnsubscribeAll()
	y.sub.pn.Destroy()
	return nil
}
