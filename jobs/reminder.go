package jobs

import (
	"context"
	"fmt"
	"time"

	"movment/lifecycle"
	"movment/metrics"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultReminderInterval = 6 * time.Hour
	DefaultReminderWindow   = 24 * time.Hour
)

// ReminderStore exposes the reminder guard. ClaimReminder must succeed for
// exactly one caller per event.
type ReminderStore interface {
	UpcomingUnreminded(ctx context.Context, from, to time.Time) ([]models.Event, error)
	ClaimReminder(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	ReleaseReminder(ctx context.Context, id primitive.ObjectID) error
}

type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Reminder notifies owners once about active events starting within the window.
type Reminder struct {
	loop
	store    ReminderStore
	notifier Notifier
	window   time.Duration
}

func NewReminder(store ReminderStore, notifier Notifier, window time.Duration, opts ...Option) *Reminder {
	if window <= 0 {
		window = DefaultReminderWindow
	}
	r := &Reminder{store: store, notifier: notifier, window: window}
	r.init("reminder", DefaultReminderInterval, r.tick, opts)
	return r
}

func (r *Reminder) tick(ctx context.Context, now time.Time) (int, error) {
	upcoming, err := r.store.UpcomingUnreminded(ctx, now, now.Add(r.window))
	if err != nil {
		return 0, fmt.Errorf("load upcoming events: %w", err)
	}

	sent := 0
	for _, ev := range upcoming {
		ok, err := r.remind(ctx, ev, now)
		if err != nil {
			r.logger.Warn("reminder failed", zap.String("event", ev.ID.Hex()), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// remind claims the guard before notifying and gives it back if the
// notification could not be stored, so the next tick retries.
func (r *Reminder) remind(ctx context.Context, ev models.Event, now time.Time) (bool, error) {
	claimed, err := r.store.ClaimReminder(ctx, ev.ID, now)
	if err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		return false, nil
	}

	id := ev.ID
	err = r.notifier.Notify(ctx, &models.Notification{
		User:         ev.BookedBy,
		Type:         models.NotifyReminder,
		Title:        "Event reminder",
		Body:         fmt.Sprintf("Your event \"%s\" is scheduled for %s.", ev.Title, lifecycle.FormatWhen(ev.ScheduledAt)),
		RelatedEvent: &id,
	})
	if err != nil {
		if rerr := r.store.ReleaseReminder(ctx, ev.ID); rerr != nil {
			r.logger.Error("release reminder guard", zap.String("event", ev.ID.Hex()), zap.Error(rerr))
		}
		return false, fmt.Errorf("notify: %w", err)
	}
	metrics.RemindersSent.Inc()
	return true, nil
}
