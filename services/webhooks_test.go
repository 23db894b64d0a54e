package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/SoftwareDeveloper2002/iskolardev-node/models"
	"github.com/SoftwareDeveloper2002/iskolardev-node/storage"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
)

// fakeWebhookStore applies status merges the way the real store does: only
// the status and timestamp columns change, everything else stays put.
type fakeWebhookStore struct {
	intents      map[string]*models.PaymentIntent
	events       []models.WebhookEvent
	provisionals int
	getCalls     int
	failNext     error
}

func newFakeWebhookStore(intents ...*models.PaymentIntent) *fakeWebhookStore {
	store := &fakeWebhookStore{intents: map[string]*models.PaymentIntent{}}
	for _, intent := range intents {
		store.intents[intent.SourceID] = intent
	}
	return store
}

func (f *fakeWebhookStore) Get(ctx context.Context, sourceID string) (*models.PaymentIntent, error) {
	f.getCalls++
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	intent, ok := f.intents[sourceID]
	if !ok {
		return nil, storage.ErrIntentNotFound
	}
	copied := *intent
	return &copied, nil
}

func (f *fakeWebhookStore) MarkPaid(ctx context.Context, sourceID string, at time.Time) error {
	intent, ok := f.intents[sourceID]
	if !ok {
		return storage.ErrIntentNotFound
	}
	intent.Status = models.PaymentStatusPaid
	intent.PaidAt = &at
	return nil
}

func (f *fakeWebhookStore) MarkFailed(ctx context.Context, sourceID string, at time.Time) error {
	intent, ok := f.intents[sourceID]
	if !ok {
		return storage.ErrIntentNotFound
	}
	intent.Status = models.PaymentStatusFailed
	intent.FailedAt = &at
	return nil
}

func (f *fakeWebhookStore) CreateProvisional(ctx context.Context, sourceID, paymentType, status string, at time.Time) error {
	f.provisionals++
	f.intents[sourceID] = &models.PaymentIntent{
		SourceID:    sourceID,
		PaymentType: paymentType,
		Status:      status,
		Provisional: true,
	}
	return nil
}

func (f *fakeWebhookStore) RecordEvent(ctx context.Context, event *models.WebhookEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeWebhookStore) lastOutcome() string {
	if len(f.events) == 0 {
		return ""
	}
	return f.events[len(f.events)-1].Outcome
}

func eventBody(sourceID, eventType string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{
			"id":         sourceID,
			"attributes": map[string]string{"type": eventType},
		},
	})
	return body
}

func pendingIntent(sourceID string) *models.PaymentIntent {
	return &models.PaymentIntent{
		SourceID:    sourceID,
		Amount:      "250.00",
		AmountMinor: 25000,
		PaymentType: "gcash",
		Billing:     datatypes.JSON(`{"name":"A","phone":"09170000000"}`),
		Status:      models.PaymentStatusPending,
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReconcilePaidEvent(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	webhooks := NewWebhooks(store, nil)

	if err := webhooks.Reconcile(context.Background(), "gcash", eventBody("src_1", "payment.paid")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent := store.intents["src_1"]
	if intent.Status != models.PaymentStatusPaid || intent.PaidAt == nil {
		t.Fatalf("intent not marked paid: %+v", intent)
	}
	if store.lastOutcome() != models.WebhookOutcomeApplied {
		t.Fatalf("expected applied audit row, got %q", store.lastOutcome())
	}
}

func TestReconcilePreservesUnrelatedFields(t *testing.T) {
	original := pendingIntent("src_1")
	store := newFakeWebhookStore(original)
	webhooks := NewWebhooks(store, nil)

	if err := webhooks.Reconcile(context.Background(), "gcash", eventBody("src_1", "payment.paid")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent := store.intents["src_1"]
	if intent.Amount != "250.00" || intent.AmountMinor != 25000 || intent.PaymentType != "gcash" {
		t.Fatalf("merge touched unrelated fields: %+v", intent)
	}
	if string(intent.Billing) != `{"name":"A","phone":"09170000000"}` {
		t.Fatalf("billing changed: %s", intent.Billing)
	}
	if !intent.CreatedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("createdAt changed: %v", intent.CreatedAt)
	}
}

func TestReconcilePaidTwiceIsIdempotent(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	webhooks := NewWebhooks(store, nil)
	body := eventBody("src_1", "payment.paid")

	if err := webhooks.Reconcile(context.Background(), "gcash", body); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	firstPaidAt := *store.intents["src_1"].PaidAt

	if err := webhooks.Reconcile(context.Background(), "gcash", body); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	intent := store.intents["src_1"]
	if intent.Status != models.PaymentStatusPaid {
		t.Fatalf("status changed on replay: %q", intent.Status)
	}
	if !intent.PaidAt.Equal(firstPaidAt) {
		t.Fatalf("paidAt moved on replay: %v -> %v", firstPaidAt, intent.PaidAt)
	}
	if store.lastOutcome() != models.WebhookOutcomeDuplicate {
		t.Fatalf("expected duplicate audit row, got %q", store.lastOutcome())
	}
}

func TestReconcileFailedAfterPaidIsSkipped(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	webhooks := NewWebhooks(store, nil)

	if err := webhooks.Reconcile(context.Background(), "gcash", eventBody("src_1", "payment.paid")); err != nil {
		t.Fatalf("paid delivery: %v", err)
	}
	paidAt := *store.intents["src_1"].PaidAt

	// A late conflicting event is acknowledged but must not revert the
	// terminal status.
	if err := webhooks.Reconcile(context.Background(), "gcash", eventBody("src_1", "payment.failed")); err != nil {
		t.Fatalf("failed delivery: %v", err)
	}
	intent := store.intents["src_1"]
	if intent.Status != models.PaymentStatusPaid || intent.FailedAt != nil {
		t.Fatalf("terminal state overwritten: %+v", intent)
	}
	if !intent.PaidAt.Equal(paidAt) {
		t.Fatalf("paidAt changed: %v", intent.PaidAt)
	}
	if store.lastOutcome() != models.WebhookOutcomeSkippedTerminal {
		t.Fatalf("expected skipped_terminal audit row, got %q", store.lastOutcome())
	}
}

func TestReconcileUnknownEventIsIgnoredAck(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	webhooks := NewWebhooks(store, nil)

	if err := webhooks.Reconcile(context.Background(), "gcash", eventBody("src_1", "source.chargeable")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.intents["src_1"].Status != models.PaymentStatusPending {
		t.Fatalf("record touched by unknown event: %+v", store.intents["src_1"])
	}
	if store.lastOutcome() != models.WebhookOutcomeIgnored {
		t.Fatalf("expected ignored audit row, got %q", store.lastOutcome())
	}
}

func TestReconcileMalformedEvent(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	webhooks := NewWebhooks(store, nil)

	cases := [][]byte{
		[]byte(`{}`),
		[]byte(`{"data":{"attributes":{"type":"payment.paid"}}}`),
		[]byte(`{"data":{"id":"src_1","attributes":{}}}`),
		[]byte(`not json`),
	}
	for _, body := range cases {
		if err := webhooks.Reconcile(context.Background(), "gcash", body); !errors.Is(err, ErrBadEvent) {
			t.Fatalf("body %s: expected ErrBadEvent, got %v", body, err)
		}
	}
	if store.intents["src_1"].Status != models.PaymentStatusPending {
		t.Fatal("malformed event wrote to the store")
	}
	if len(store.events) != 0 {
		t.Fatalf("malformed events were audited: %+v", store.events)
	}
}

func TestReconcileBeforeIntentWritesProvisional(t *testing.T) {
	store := newFakeWebhookStore()
	webhooks := NewWebhooks(store, nil)

	if err := webhooks.Reconcile(context.Background(), "gcash", eventBody("src_early", "payment.paid")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	intent, ok := store.intents["src_early"]
	if !ok || !intent.Provisional || intent.Status != models.PaymentStatusPaid {
		t.Fatalf("provisional record wrong: %+v", intent)
	}
	if store.provisionals != 1 {
		t.Fatalf("expected one provisional write, got %d", store.provisionals)
	}
}

func TestReconcileStorageFailureSurfaces(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	store.failNext = errors.New("db down")
	webhooks := NewWebhooks(store, nil)

	err := webhooks.Reconcile(context.Background(), "gcash", eventBody("src_1", "payment.paid"))
	if err == nil || errors.Is(err, ErrBadEvent) {
		t.Fatalf("expected storage error so the provider retries, got %v", err)
	}
}

// fakeReplayCache stands in for the Redis replay keys.
type fakeReplayCache struct {
	keys map[string]bool
}

func newFakeReplayCache() *fakeReplayCache {
	return &fakeReplayCache{keys: map[string]bool{}}
}

func (f *fakeReplayCache) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if f.keys[key] {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeReplayCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if err := ctx.Err(); err != nil {
		return redis.NewStatusResult("", err)
	}
	f.keys[key] = true
	return redis.NewStatusResult("OK", nil)
}

func TestReconcileMarksReplayOnlyAfterApply(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	store.failNext = errors.New("db down")
	cache := newFakeReplayCache()
	webhooks := &Webhooks{store: store, cache: cache}
	body := eventBody("src_1", "payment.paid")

	if err := webhooks.Reconcile(context.Background(), "gcash", body); err == nil {
		t.Fatal("expected storage error on the first delivery")
	}
	if len(cache.keys) != 0 {
		t.Fatalf("failed delivery left replay keys: %v", cache.keys)
	}

	// The provider's retry of the same delivery must be applied, not
	// dismissed as a duplicate.
	if err := webhooks.Reconcile(context.Background(), "gcash", body); err != nil {
		t.Fatalf("retry: %v", err)
	}
	intent := store.intents["src_1"]
	if intent.Status != models.PaymentStatusPaid || intent.PaidAt == nil {
		t.Fatalf("retry did not apply: %+v", intent)
	}
	if store.lastOutcome() != models.WebhookOutcomeApplied {
		t.Fatalf("expected applied audit row, got %q", store.lastOutcome())
	}
	if !cache.keys["webhook:src_1:payment.paid"] {
		t.Fatal("applied delivery was not remembered")
	}
}

func TestReconcileReplayShortCircuitsViaCache(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	cache := newFakeReplayCache()
	webhooks := &Webhooks{store: store, cache: cache}
	body := eventBody("src_1", "payment.paid")

	if err := webhooks.Reconcile(context.Background(), "gcash", body); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	getsAfterApply := store.getCalls

	if err := webhooks.Reconcile(context.Background(), "gcash", body); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if store.getCalls != getsAfterApply {
		t.Fatalf("replay hit the store: %d reads", store.getCalls-getsAfterApply)
	}
	if store.lastOutcome() != models.WebhookOutcomeDuplicate {
		t.Fatalf("expected duplicate audit row, got %q", store.lastOutcome())
	}
}

func TestReconcileRemembersDeliveryOnCanceledRequest(t *testing.T) {
	store := newFakeWebhookStore(pendingIntent("src_1"))
	cache := newFakeReplayCache()
	webhooks := &Webhooks{store: store, cache: cache}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := webhooks.Reconcile(ctx, "gcash", eventBody("src_1", "payment.paid")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cache.keys["webhook:src_1:payment.paid"] {
		t.Fatal("canceled request left the applied delivery unmarked")
	}
}
