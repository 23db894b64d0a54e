package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/SoftwareDeveloper2002/iskolardev-node/models"

	"gorm.io/datatypes"
)

// ErrInvalidAmount marks a client-supplied amount that is missing, not a
// non-negative number, or zero.
var ErrInvalidAmount = errors.New("invalid amount")

// IntentStore is the persistence surface the intent builder writes to.
type IntentStore interface {
	CreatePending(ctx context.Context, intent *models.PaymentIntent) error
}

// CreateIntentInput is one intent-creation request. Amount stays raw JSON so
// a number literal like 250.00 keeps its exact digits when echoed back; UID
// is set only when the caller presented a valid bearer assertion.
type CreateIntentInput struct {
	Amount  json.RawMessage
	Billing BillingInput
	UID     string
}

// IntentResult is what the client needs to continue checkout.
type IntentResult struct {
	SourceID    string `json:"sourceId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Intents builds payment intents: validate, normalize billing per method,
// create the provider source, persist the pending record.
type Intents struct {
	provider SourceCreator
	store    IntentStore
}

func NewIntents(provider SourceCreator, store IntentStore) *Intents {
	return &Intents{provider: provider, store: store}
}

// Create runs one intent creation. The provider call and the store write are
// two independent effects: if the write fails after the source was created,
// the source id is logged so the orphan can be found against PayMongo.
func (s *Intents) Create(ctx context.Context, paymentType string, in CreateIntentInput) (*IntentResult, error) {
	paymentType = strings.ToLower(paymentType)

	raw, value, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	amountMinor := toMinorUnits(value)

	billing := LookupMethod(paymentType).NormalizeBilling(in.Billing)

	source, err := s.provider.CreateSource(ctx, SourceParams{
		AmountMinor: amountMinor,
		Type:        paymentType,
		Billing:     billing,
	})
	if err != nil {
		return nil, err
	}

	// The record echoes the request, not the provider's normalized view.
	billingJSON, err := json.Marshal(in.Billing)
	if err != nil {
		billingJSON = []byte("{}")
	}

	intent := models.PaymentIntent{
		SourceID:    source.ID,
		Amount:      raw,
		AmountMinor: amountMinor,
		PaymentType: paymentType,
		Billing:     datatypes.JSON(billingJSON),
		CheckoutURL: source.CheckoutURL,
		UID:         in.UID,
	}
	if err := s.store.CreatePending(ctx, &intent); err != nil {
		log.Printf("payment source %s created but not recorded: %v", source.ID, err)
		return nil, fmt.Errorf("recording payment intent %s: %w", source.ID, err)
	}

	return &IntentResult{SourceID: source.ID, CheckoutURL: source.CheckoutURL}, nil
}

// parseAmount accepts a JSON number or numeric string: digits with at most
// one decimal separator, value strictly positive. The number literal's own
// text is kept for verbatim storage, so "250.00" is stored as written whether
// it arrived quoted or not.
func parseAmount(amount json.RawMessage) (string, float64, error) {
	raw := strings.TrimSpace(string(amount))
	if raw == "" || raw == "null" {
		return "", 0, ErrInvalidAmount
	}
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(amount, &raw); err != nil {
			return "", 0, ErrInvalidAmount
		}
	}

	digits := strings.Replace(raw, ".", "", 1)
	if digits == "" || !isAllDigits(digits) {
		return "", 0, ErrInvalidAmount
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return "", 0, ErrInvalidAmount
	}
	return raw, value, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// toMinorUnits converts a peso amount to centavos, rounding half away from
// zero: 10.5 -> 1050, 0.005 -> 1.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
