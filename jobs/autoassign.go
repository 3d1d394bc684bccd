package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"movment/lifecycle"
	"movment/metrics"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const DefaultAutoAssignInterval = time.Minute

type DueEvents interface {
	DueForAutoAssign(ctx context.Context, now time.Time) ([]models.Event, error)
}

type ManagerFinder interface {
	// FindApprovedManagerInCity returns nil, nil when no manager matches.
	FindApprovedManagerInCity(ctx context.Context, city string) (*models.User, error)
}

type Assigner interface {
	AutoAssign(ctx context.Context, id, manager primitive.ObjectID) (*models.Event, error)
}

// AutoAssigner hands pending events whose deadline has passed to an approved
// manager in the same city.
type AutoAssigner struct {
	loop
	events   DueEvents
	managers ManagerFinder
	assigner Assigner
}

func NewAutoAssigner(events DueEvents, managers ManagerFinder, assigner Assigner, opts ...Option) *AutoAssigner {
	a := &AutoAssigner{events: events, managers: managers, assigner: assigner}
	a.init("autoassign", DefaultAutoAssignInterval, a.tick, opts)
	return a
}

func (a *AutoAssigner) tick(ctx context.Context, now time.Time) (int, error) {
	due, err := a.events.DueForAutoAssign(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load due events: %w", err)
	}

	assigned := 0
	for _, ev := range due {
		ok, err := a.assignOne(ctx, ev)
		if err != nil {
			a.logger.Warn("auto-assign failed", zap.String("event", ev.ID.Hex()), zap.Error(err))
			continue
		}
		if ok {
			assigned++
		}
	}
	if assigned > 0 {
		a.logger.Info("auto-assigned events", zap.Int("count", assigned), zap.Int("due", len(due)))
	}
	return assigned, nil
}

func (a *AutoAssigner) assignOne(ctx context.Context, ev models.Event) (bool, error) {
	city := strings.TrimSpace(ev.Location.City)
	if city == "" {
		return false, nil
	}
	manager, err := a.managers.FindApprovedManagerInCity(ctx, city)
	if err != nil {
		return false, fmt.Errorf("find manager in %s: %w", city, err)
	}
	if manager == nil {
		a.logger.Debug("no manager available", zap.String("event", ev.ID.Hex()), zap.String("city", city))
		return false, nil
	}

	_, err = a.assigner.AutoAssign(ctx, ev.ID, manager.ID)
	if errors.Is(err, lifecycle.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	metrics.AutoAssigned.Inc()
	return true, nil
}
