package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/superkart/kart-backend/pkg/config"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API surface plus env-specific metadata.
type Client struct {
	environment string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(cfg config.StripeConfig) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	return &Client{environment: env}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// PaymentIntent holds the gateway handle returned after creating an intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// CreatePaymentIntent registers a charge for the given decimal amount. Stripe
// bills in minor units, so 25.50 USD is sent as 2550.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, orderNumber string) (*PaymentIntent, error) {
	if c == nil {
		return nil, errors.New("stripe client not configured")
	}

	minorUnits := amount.Shift(2).Round(0).IntPart()
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits),
		Currency: stripe.String(strings.ToLower(currency)),
		Metadata: map[string]string{
			"order_number": orderNumber,
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
