package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const AlertPostDue = "post.due"

// Scheduler announces scheduled posts once their time has come.
type Scheduler struct {
	posts    *PostService
	alerts   *AlertBus
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewScheduler(posts *PostService, alerts *AlertBus, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{posts: posts, alerts: alerts, interval: interval, logger: logger, now: time.Now}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Warn("scheduler tick failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick emits a post.due alert for every due post and returns how many went out.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.posts.Due(ctx, now)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range due {
		p := &due[i]
		ok, err := s.posts.MarkNotified(ctx, p.ID, now)
		if err != nil {
			return sent, err
		}
		if !ok {
			continue
		}
		s.alerts.Emit(ctx, p.Owner, AlertPostDue,
			fmt.Sprintf("Your post about %q is scheduled to go out now.", p.Topic), p)
		sent++
	}
	return sent, nil
}
