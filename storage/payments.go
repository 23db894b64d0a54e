package storage

import (
	"context"
	"errors"
	"time"

	"github.com/SoftwareDeveloper2002/iskolardev-node/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrIntentNotFound is returned when no intent row exists for a source id.
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrIntentExists is returned when a pending write would clobber a row
	// already keyed by the same source id.
	ErrIntentExists = errors.New("payment intent already exists")
)

// Payments owns the payments table. Creation happens on the intent path,
// status updates on the webhook path; the two never touch each other's
// columns.
type Payments struct {
	db *gorm.DB
}

func NewPayments(db *gorm.DB) *Payments {
	return &Payments{db: db}
}

// CreatePending writes a fresh intent row. Source ids are provider-issued and
// unique, so a conflict means either a provider replay or a provisional row
// left by an early webhook; in both cases the original row wins.
func (p *Payments) CreatePending(ctx context.Context, intent *models.PaymentIntent) error {
	intent.Status = models.PaymentStatusPending
	res := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(intent)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIntentExists
	}
	return nil
}

func (p *Payments) Get(ctx context.Context, sourceID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := p.db.WithContext(ctx).First(&intent, "source_id = ?", sourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// MarkPaid merges the paid status onto the row, touching nothing but the
// status and timestamp columns. Amount, billing and createdAt stay intact.
func (p *Payments) MarkPaid(ctx context.Context, sourceID string, at time.Time) error {
	return p.mergeStatus(ctx, sourceID, map[string]interface{}{
		"status":  models.PaymentStatusPaid,
		"paid_at": at,
	})
}

// MarkFailed merges the failed status onto the row.
func (p *Payments) MarkFailed(ctx context.Context, sourceID string, at time.Time) error {
	return p.mergeStatus(ctx, sourceID, map[string]interface{}{
		"status":    models.PaymentStatusFailed,
		"failed_at": at,
	})
}

func (p *Payments) mergeStatus(ctx context.Context, sourceID string, columns map[string]interface{}) error {
	res := p.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("source_id = ?", sourceID).
		Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIntentNotFound
	}
	return nil
}

// CreateProvisional writes the partial row left when a webhook outruns the
// intent write. It carries no amount or billing.
func (p *Payments) CreateProvisional(ctx context.Context, sourceID, paymentType, status string, at time.Time) error {
	intent := models.PaymentIntent{
		SourceID:    sourceID,
		PaymentType: paymentType,
		Status:      status,
		Provisional: true,
	}
	switch status {
	case models.PaymentStatusPaid:
		intent.PaidAt = &at
	case models.PaymentStatusFailed:
		intent.FailedAt = &at
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&intent).Error
}

// RecordEvent appends a webhook audit row. Audit failures are the caller's
// call to swallow; they never gate the acknowledgment.
func (p *Payments) RecordEvent(ctx context.Context, event *models.WebhookEvent) error {
	return p.db.WithContext(ctx).Create(event).Error
}
