// Package notify stores in-app notifications, pushes them to live
// connections and relays selected types to e-mail and SMS.
package notify

import (
	"context"
	"fmt"
	"time"

	"movment/metrics"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
	InsertMany(ctx context.Context, batch []models.Notification) error
}

// Pusher forwards a payload to a user's live connections.
type Pusher interface {
	Push(userID primitive.ObjectID, action string, data any)
}

type Contacts interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// external lists the types relayed beyond the in-app inbox.
var external = map[models.NotificationType]struct{ email, sms bool }{
	models.NotifyBookingConfirmation: {email: true},
	models.NotifyReminder:            {email: true, sms: true},
	models.NotifyEmergencyAlert:      {email: true, sms: true},
	models.NotifySupportReply:        {email: true},
}

const deliveryTimeout = 15 * time.Second

type Service struct {
	store    Store
	pusher   Pusher
	contacts Contacts
	email    Sender
	sms      Sender
	logger   *zap.Logger
	now      func() time.Time
	async    bool
}

func NewService(store Store, pusher Pusher, contacts Contacts, email, sms Sender, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		pusher:   pusher,
		contacts: contacts,
		email:    email,
		sms:      sms,
		logger:   logger,
		now:      time.Now,
		async:    true,
	}
}

// Notify persists n. Live push and external relay are best effort.
func (s *Service) Notify(ctx context.Context, n *models.Notification) error {
	s.stamp(n)
	if err := s.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	s.push(*n)
	s.relay(*n)
	return nil
}

// NotifyMany sends a copy of tmpl to every user in one insert.
func (s *Service) NotifyMany(ctx context.Context, users []primitive.ObjectID, tmpl models.Notification) (int, error) {
	batch := make([]models.Notification, 0, len(users))
	for _, u := range users {
		n := tmpl
		n.ID = primitive.NilObjectID
		n.User = u
		s.stamp(&n)
		batch = append(batch, n)
	}
	if err := s.store.InsertMany(ctx, batch); err != nil {
		return 0, fmt.Errorf("insert notifications: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(tmpl.Type)).Add(float64(len(batch)))
	for _, n := range batch {
		s.push(n)
		s.relay(n)
	}
	return len(batch), nil
}

func (s *Service) stamp(n *models.Notification) {
	now := s.now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
}

func (s *Service) push(n models.Notification) {
	if s.pusher != nil {
		s.pusher.Push(n.User, "notification", n)
	}
}

func (s *Service) relay(n models.Notification) {
	channels, ok := external[n.Type]
	if !ok || s.contacts == nil {
		return
	}
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		s.deliver(ctx, n, channels.email, channels.sms)
	}
	if s.async {
		go run()
		return
	}
	run()
}

func (s *Service) deliver(ctx context.Context, n models.Notification, email, sms bool) {
	user, err := s.contacts.FindByID(ctx, n.User)
	if err != nil {
		s.logger.Warn("load recipient", zap.String("user", n.User.Hex()), zap.Error(err))
		return
	}
	if email && user.Email != "" && s.email != nil {
		if err := s.email.Send(ctx, user.Email, n.Title, n.Body); err != nil {
			s.logger.Warn("email delivery failed", zap.String("user", n.User.Hex()), zap.Error(err))
		}
	}
	if sms && user.Phone != "" && s.sms != nil {
		if err := s.sms.Send(ctx, user.Phone, n.Title, n.Title+": "+n.Body); err != nil {
			s.logger.Warn("sms delivery failed", zap.String("user", n.User.Hex()), zap.Error(err))
		}
	}
}
