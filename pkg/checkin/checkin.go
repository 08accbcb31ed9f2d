// Package checkin schedules proactive wellness check-ins on a cron
// expression and delivers them through a caller-supplied send function.
package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/havenlabs/haven/pkg/config"
	"github.com/havenlabs/haven/pkg/logger"
)

const defaultMessage = "Hey, just checking in. How are you doing today?"

// SendFunc delivers one check-in message; the scheduler doesn't care
// whether that's a Discord channel or a terminal.
type SendFunc func(ctx context.Context, message string) error

// Scheduler fires SendFunc on every tick of a cron schedule. now is
// injectable for tests.
type Scheduler struct {
	schedule string
	message  string
	send     SendFunc
	now      func() time.Time
}

func NewScheduler(cfg config.CheckInConfig, send SendFunc) (*Scheduler, error) {
	if !gronx.New().IsValid(cfg.Schedule) {
		return nil, fmt.Errorf("invalid check-in schedule %q", cfg.Schedule)
	}
	message := cfg.Message
	if message == "" {
		message = defaultMessage
	}
	return &Scheduler{
		schedule: cfg.Schedule,
		message:  message,
		send:     send,
		now:      time.Now,
	}, nil
}

// Next returns the first tick strictly after the given time.
func (s *Scheduler) Next(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.schedule, after, false)
}

// Run blocks until ctx is done, sleeping between ticks. A failed send is
// logged and the schedule keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.InfoCF("checkin", "Check-in scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})

	for {
		next, err := s.Next(s.now())
		if err != nil {
			return fmt.Errorf("computing next check-in tick: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.send(ctx, s.message); err != nil {
			logger.WarnCF("checkin", "Check-in delivery failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			logger.InfoC("checkin", "Check-in delivered")
		}
	}
}

// Message is the configured check-in text.
func (s *Scheduler) Message() string { return s.message }
