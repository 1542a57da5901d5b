package services

import (
	"context"
	"fmt"
	"time"

	"hasiru/models"
	"hasiru/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AlertSink delivers an alert outside the process (push, email).
type AlertSink interface {
	Name() string
	Deliver(ctx context.Context, a *models.Alert, payload any) error
}

// AlertBus stores alerts and fans them out to realtime clients and sinks.
// Delivery failures are logged and never reach the caller.
type AlertBus struct {
	db     *gorm.DB
	events EventPublisher
	sinks  []AlertSink
	logger *zap.Logger
}

func NewAlertBus(db *gorm.DB, events EventPublisher, logger *zap.Logger, sinks ...AlertSink) *AlertBus {
	return &AlertBus{db: db, events: events, sinks: sinks, logger: logger}
}

func (b *AlertBus) Emit(ctx context.Context, owner, typ, message string, payload any) *models.Alert {
	a := &models.Alert{Owner: owner, Type: typ, Message: message, CreatedAt: time.Now().UTC()}
	if b.db != nil {
		if err := b.db.WithContext(ctx).Create(a).Error; err != nil {
			b.logger.Warn("failed to store alert", zap.String("type", typ), zap.Error(err))
		}
	}

	if b.events != nil {
		b.events.Publish(owner, map[string]any{
			"kind":  typ,
			"alert": a,
			"data":  payload,
		})
	}
	for _, s := range b.sinks {
		if err := s.Deliver(ctx, a, payload); err != nil {
			b.logger.Warn("alert delivery failed",
				zap.String("sink", s.Name()),
				zap.String("type", typ),
				zap.Error(err))
		}
	}
	return a
}

// Recent lists the owner's latest alerts.
func (b *AlertBus) Recent(ctx context.Context, owner string, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	err := b.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// EmailSink mails alerts to one fixed recipient.
type EmailSink struct {
	Mailer *utils.Mailer
	To     string
}

func (e *EmailSink) Name() string { return "ses" }

func (e *EmailSink) Deliver(ctx context.Context, a *models.Alert, payload any) error {
	if post, ok := payload.(*models.Post); ok {
		return e.Mailer.SendPostReminder(ctx, e.To, post.Topic, post.Content)
	}
	return e.Mailer.Send(ctx, e.To, "Hasiru alert: "+a.Type, a.Message)
}
