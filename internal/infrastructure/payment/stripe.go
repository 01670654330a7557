package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"falplatform/internal/domain"

	stripe "github.com/stripe/stripe-go/v82"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrInvalidSignature = errors.New("invalid stripe signature")
	ErrNotConfigured    = errors.New("stripe is not configured")
)

const (
	metaUserID   = "user_id"
	metaRitualID = "ritual_id"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CompletedCheckout - оплаченная сессия, по которой ритуал надо записать в леджер
type CompletedCheckout struct {
	SessionID string
	UserID    string
	RitualID  string
}

// CreateRitualCheckout создает разовую Checkout-сессию и возвращает URL оплаты.
// Если у ритуала нет Stripe price, цена передается через price_data.
func (c *Client) CreateRitualCheckout(ctx context.Context, userID string, ritual *domain.Ritual) (string, error) {
	if c.cfg.SecretKey == "" {
		return "", ErrNotConfigured
	}

	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if ritual.StripePriceID != "" {
		item.Price = stripe.String(ritual.StripePriceID)
	} else {
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(c.cfg.Currency),
			UnitAmount: stripe.Int64(ritual.PriceMinor),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(ritual.Name),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{item},
		ClientReferenceID: stripe.String(userID),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metaUserID, userID)
	params.AddMetadata(metaRitualID, ritual.ID)

	sess, err := checksession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}

// ParseWebhook проверяет подпись и вытаскивает оплаченную покупку ритуала.
// Для остальных событий возвращает nil без ошибки.
func (c *Client) ParseWebhook(payload []byte, sigHeader string) (*CompletedCheckout, error) {
	event, err := c.ConstructWebhookEvent(payload, sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
	default:
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, nil
	}

	userID := sess.Metadata[metaUserID]
	if userID == "" {
		userID = sess.ClientReferenceID
	}
	ritualID := sess.Metadata[metaRitualID]
	if userID == "" || ritualID == "" {
		return nil, fmt.Errorf("checkout session %s: missing ritual metadata", sess.ID)
	}

	return &CompletedCheckout{SessionID: sess.ID, UserID: userID, RitualID: ritualID}, nil
}
