package analytics

import (
	"context"
	"encoding/json"

	"movment/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// staleOn lists the activities that move a cached aggregate. Status changes
// made by staff are picked up when the entries expire.
var staleOn = map[models.ActivityAction]bool{
	models.ActionBookingCreated:     true,
	models.ActionBookingCancelled:   true,
	models.ActionBookingRescheduled: true,
	models.ActionPayment:            true,
	models.ActionFeedback:           true,
}

// Invalidator drops cached aggregates as activity arrives on the Redis channel.
type Invalidator struct {
	cache  Cache
	logger *zap.Logger
}

func NewInvalidator(cache Cache, logger *zap.Logger) *Invalidator {
	return &Invalidator{cache: cache, logger: logger}
}

// Run consumes msgs until ctx is done or the channel closes.
func (v *Invalidator) Run(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			v.handle(ctx, msg.Payload)
		}
	}
}

func (v *Invalidator) handle(ctx context.Context, payload string) {
	var a models.UserActivity
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		v.logger.Debug("skip activity payload", zap.Error(err))
		return
	}
	if !staleOn[a.Action] {
		return
	}
	if err := v.cache.Invalidate(ctx, Keys...); err != nil {
		v.logger.Warn("invalidate analytics cache", zap.Error(err))
	}
}
