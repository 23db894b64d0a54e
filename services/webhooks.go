package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/SoftwareDeveloper2002/iskolardev-node/models"
	"github.com/SoftwareDeveloper2002/iskolardev-node/storage"

	"github.com/go-redis/redis/v8"
)

// ErrBadEvent marks a webhook payload missing its event type or source id.
// Such deliveries are rejected outright; a replay would be just as malformed.
var ErrBadEvent = errors.New("malformed webhook event")

const replayKeyTTL = 24 * time.Hour

// WebhookStore is the persistence surface the reconciler needs.
type WebhookStore interface {
	Get(ctx context.Context, sourceID string) (*models.PaymentIntent, error)
	MarkPaid(ctx context.Context, sourceID string, at time.Time) error
	MarkFailed(ctx context.Context, sourceID string, at time.Time) error
	CreateProvisional(ctx context.Context, sourceID, paymentType, status string, at time.Time) error
	RecordEvent(ctx context.Context, event *models.WebhookEvent) error
}

// replayCache is the slice of the Redis API used for replay suppression.
type replayCache interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Webhooks reconciles PayMongo deliveries into the stored intent. Deliveries
// can be duplicated, reordered or early; every path here is idempotent and a
// terminal status is never transitioned again.
type Webhooks struct {
	store WebhookStore
	cache replayCache
}

// NewWebhooks builds the reconciler. The Redis client is optional; without
// it replay suppression falls back to the database's terminal-state check.
func NewWebhooks(store WebhookStore, redisClient *redis.Client) *Webhooks {
	webhooks := &Webhooks{store: store}
	if redisClient != nil {
		webhooks.cache = redisClient
	}
	return webhooks
}

type webhookEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
		} `json:"attributes"`
	} `json:"data"`
}

// Reconcile applies one provider delivery. A nil return means the delivery
// must be acknowledged 200 (applied, ignored or duplicate); ErrBadEvent maps
// to 400; anything else is a storage failure the provider should retry.
//
// The replay mark is written only after the store write lands. A crash or a
// canceled request between the two leaves no mark, so the provider's retry
// is processed instead of being mistaken for a duplicate; in that window the
// terminal-state check below stays the authority on idempotency.
func (s *Webhooks) Reconcile(ctx context.Context, paymentType string, body []byte) error {
	var envelope webhookEnvelope
	json.Unmarshal(body, &envelope)

	sourceID := envelope.Data.ID
	eventType := envelope.Data.Attributes.Type
	if sourceID == "" || eventType == "" {
		return ErrBadEvent
	}

	status, known := statusForEvent(eventType)
	if !known {
		// Provider emits event types this service does not act on
		// (source.chargeable and friends). Acknowledge and move on.
		s.audit(ctx, sourceID, paymentType, eventType, models.WebhookOutcomeIgnored)
		return nil
	}

	replayKey := fmt.Sprintf("webhook:%s:%s", sourceID, eventType)
	if s.seenDelivery(ctx, replayKey) {
		s.audit(ctx, sourceID, paymentType, eventType, models.WebhookOutcomeDuplicate)
		return nil
	}

	now := time.Now().UTC()

	intent, err := s.store.Get(ctx, sourceID)
	if errors.Is(err, storage.ErrIntentNotFound) {
		// Delivery outran the intent write. Keep a provisional row so the
		// status is not lost; it carries no amount or billing.
		if err := s.store.CreateProvisional(ctx, sourceID, paymentType, status, now); err != nil {
			return err
		}
		log.Printf("webhook for unknown source %s recorded provisionally as %s", sourceID, status)
		s.rememberDelivery(ctx, replayKey)
		s.audit(ctx, sourceID, paymentType, eventType, models.WebhookOutcomeApplied)
		return nil
	}
	if err != nil {
		return err
	}

	if intent.Terminal() {
		if intent.Status == status {
			// Same terminal event again: nothing to do, first-write
			// timestamps stand.
			s.rememberDelivery(ctx, replayKey)
			s.audit(ctx, sourceID, paymentType, eventType, models.WebhookOutcomeDuplicate)
			return nil
		}
		log.Printf("webhook %s for source %s ignored: already %s", eventType, sourceID, intent.Status)
		s.rememberDelivery(ctx, replayKey)
		s.audit(ctx, sourceID, paymentType, eventType, models.WebhookOutcomeSkippedTerminal)
		return nil
	}

	switch status {
	case models.PaymentStatusPaid:
		err = s.store.MarkPaid(ctx, sourceID, now)
	case models.PaymentStatusFailed:
		err = s.store.MarkFailed(ctx, sourceID, now)
	}
	if err != nil {
		return err
	}

	s.rememberDelivery(ctx, replayKey)
	s.audit(ctx, sourceID, paymentType, eventType, models.WebhookOutcomeApplied)
	return nil
}

func statusForEvent(eventType string) (string, bool) {
	switch eventType {
	case "payment.paid":
		return models.PaymentStatusPaid, true
	case "payment.failed":
		return models.PaymentStatusFailed, true
	default:
		return "", false
	}
}

// seenDelivery reports whether this (source, event) pair was already applied.
// Redis being down or absent degrades to processing every delivery; the
// terminal-state check stays authoritative.
func (s *Webhooks) seenDelivery(ctx context.Context, key string) bool {
	if s.cache == nil {
		return false
	}
	n, err := s.cache.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("webhook replay check unavailable: %v", err)
		return false
	}
	return n > 0
}

// rememberDelivery marks the pair as applied. Detached from the request
// context: a caller canceling after the store write must not keep an applied
// delivery unmarked.
func (s *Webhooks) rememberDelivery(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(context.WithoutCancel(ctx), key, "1", replayKeyTTL).Err(); err != nil {
		log.Printf("failed to mark webhook delivery %s: %v", key, err)
	}
}

func (s *Webhooks) audit(ctx context.Context, sourceID, paymentType, eventType, outcome string) {
	event := models.WebhookEvent{
		SourceID:    sourceID,
		PaymentType: paymentType,
		EventType:   eventType,
		Outcome:     outcome,
	}
	if err := s.store.RecordEvent(ctx, &event); err != nil {
		log.Printf("failed to record webhook event %s/%s: %v", sourceID, eventType, err)
	}
}
