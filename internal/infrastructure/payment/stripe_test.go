package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"falplatform/internal/domain"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test"

func signedPayload(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseWebhookCompletedCheckout(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testWebhookSecret})
	body, header := signedPayload(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"client_reference_id": "user-1",
			"metadata": {"user_id": "user-1", "ritual_id": "love-candle"}
		}}
	}`)

	got, err := c.ParseWebhook(body, header)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := CompletedCheckout{SessionID: "cs_test_1", UserID: "user-1", RitualID: "love-candle"}
	if got == nil || *got != want {
		t.Errorf("checkout = %+v, want %+v", got, want)
	}
}

func TestParseWebhookIgnoresUnpaidAndOtherEvents(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testWebhookSecret})

	for name, payload := range map[string]string{
		"unpaid": `{"id":"evt_2","object":"event","type":"checkout.session.completed",
			"data":{"object":{"id":"cs_2","object":"checkout.session","payment_status":"unpaid",
			"metadata":{"user_id":"u","ritual_id":"r"}}}}`,
		"other": `{"id":"evt_3","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`,
	} {
		body, header := signedPayload(t, payload)
		got, err := c.ParseWebhook(body, header)
		if err != nil || got != nil {
			t.Errorf("%s: got %+v, %v; want nil, nil", name, got, err)
		}
	}
}

func TestParseWebhookBadSignature(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testWebhookSecret})
	_, err := c.ParseWebhook([]byte(`{"type":"checkout.session.completed"}`), "t=1,v1=deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestCreateRitualCheckout(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer srv.Close()

	prev := stripe.GetBackend(stripe.APIBackend)
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(srv.URL),
	}))
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, prev) })

	c := NewClient(Config{SecretKey: "sk_test_123", Currency: "try", SuccessURL: "http://x/ok", CancelURL: "http://x/cancel"})
	url, err := c.CreateRitualCheckout(context.Background(), "user-1", &domain.Ritual{
		ID: "love-candle", Name: "Love Candle", PriceMinor: 4900,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if url != "https://checkout.stripe.com/c/pay/cs_test_1" {
		t.Errorf("url = %q", url)
	}

	for k, v := range map[string]string{
		"mode":                                   "payment",
		"metadata[user_id]":                      "user-1",
		"metadata[ritual_id]":                    "love-candle",
		"line_items[0][price_data][unit_amount]": "4900",
		"line_items[0][price_data][currency]":    "try",
	} {
		if form[k] != v {
			t.Errorf("%s = %q, want %q", k, form[k], v)
		}
	}
}

func TestCreateRitualCheckoutNotConfigured(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.CreateRitualCheckout(context.Background(), "u", &domain.Ritual{ID: "r"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
