package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"movment/metrics"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const DefaultAssignDelay = 15 * time.Minute

// Actor is the caller of a lifecycle operation, as re-validated against the store.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

func (a Actor) isStaff() bool {
	return a.Role == models.RoleManager || a.Role == models.RoleAdmin || a.Role == models.RoleOwner
}

func (a Actor) isAdmin() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleOwner
}

// Cond restricts a conditional update. Empty fields do not constrain.
type Cond struct {
	Statuses []models.EventStatus
	BookedBy *primitive.ObjectID
}

// Change is applied atomically when Cond holds.
type Change struct {
	Status          models.EventStatus
	AssignedManager *primitive.ObjectID
	ScheduledAt     *time.Time
	AssignedTeam    []string
	SetTeam         bool
	History         *models.StatusChange
	At              time.Time
}

// Repository is the event store used by the lifecycle. UpdateIf returns
// ErrConflict when no document matched id and cond.
type Repository interface {
	Insert(ctx context.Context, ev *models.Event) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	UpdateIf(ctx context.Context, id primitive.ObjectID, cond Cond, change Change) (*models.Event, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type ActivityRecorder interface {
	Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID)
}

type Service struct {
	repo        Repository
	notifier    Notifier
	activity    ActivityRecorder
	logger      *zap.Logger
	now         func() time.Time
	assignDelay time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithAssignDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.assignDelay = d
		}
	}
}

func NewService(repo Repository, notifier Notifier, activity ActivityRecorder, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		notifier:    notifier,
		activity:    activity,
		logger:      logger,
		now:         time.Now,
		assignDelay: DefaultAssignDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is a booking request after transport decoding.
type CreateInput struct {
	Type               string
	Title              string
	Description        string
	ScheduledAt        time.Time
	AddressLine        string
	City               string
	Pincode            string
	Landmark           string
	Lat                *float64
	Lng                *float64
	MapLink            string
	GuestCount         int
	Venue              string
	AdditionalServices []models.ServiceRequest
	CustomRequests     string
}

func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*models.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.AddressLine = strings.TrimSpace(in.AddressLine)
	in.City = strings.TrimSpace(in.City)
	in.Pincode = strings.TrimSpace(in.Pincode)
	if in.Type == "" || in.Title == "" || in.ScheduledAt.IsZero() || in.AddressLine == "" || in.City == "" || in.Pincode == "" {
		return nil, newError(ErrValidation, "Missing required fields")
	}
	if !models.ValidEventType(in.Type) {
		return nil, newError(ErrValidation, "Invalid event type")
	}

	now := s.now().UTC()
	guests := in.GuestCount
	if guests < 1 {
		guests = 1
	}

	services := make([]models.ServiceRequest, 0, len(in.AdditionalServices))
	for _, sr := range in.AdditionalServices {
		sr.Service = strings.TrimSpace(sr.Service)
		if sr.Service == "" {
			continue
		}
		services = append(services, sr)
	}

	loc := models.EventLocation{
		AddressLine: in.AddressLine,
		City:        in.City,
		Pincode:     in.Pincode,
		Landmark:    strings.TrimSpace(in.Landmark),
		MapLink:     strings.TrimSpace(in.MapLink),
	}
	if in.Lat != nil && in.Lng != nil {
		loc.Coordinates = &models.Coordinates{Lat: *in.Lat, Lng: *in.Lng}
	}

	by := actor.ID
	ev := &models.Event{
		ID:                 primitive.NewObjectID(),
		BookedBy:           actor.ID,
		AssignedTeam:       []string{},
		Type:               in.Type,
		Title:              in.Title,
		Description:        strings.TrimSpace(in.Description),
		ScheduledAt:        in.ScheduledAt.UTC(),
		GuestCount:         guests,
		Venue:              strings.TrimSpace(in.Venue),
		Location:           loc,
		AdditionalServices: services,
		CustomRequests:     strings.TrimSpace(in.CustomRequests),
		Status:             models.StatusPending,
		StatusHistory:      []models.StatusChange{{Status: models.StatusPending, At: now, By: &by}},
		AutoAssignDeadline: now.Add(s.assignDelay),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, ev); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	s.notify(ctx, &models.Notification{
		User:         ev.BookedBy,
		Type:         models.NotifyBookingConfirmation,
		Title:        "Booking confirmed",
		Body:         fmt.Sprintf("Your event \"%s\" is scheduled for %s.", ev.Title, FormatWhen(ev.ScheduledAt)),
		RelatedEvent: &ev.ID,
	})
	s.record(ctx, actor.ID, models.ActionBookingCreated, &ev.ID)
	return ev, nil
}

// Accept assigns a pending event to the calling manager. Exactly one of any
// number of racing accepts (manual or automatic) succeeds.
func (s *Service) Accept(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Event, error) {
	if !actor.isStaff() {
		return nil, newError(ErrForbidden, "Forbidden")
	}
	ev, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status != models.StatusPending {
		return nil, newError(ErrInvalidTransition, "Event is not in pending status")
	}

	now := s.now().UTC()
	by := actor.ID
	updated, err := s.repo.UpdateIf(ctx, id,
		Cond{Statuses: []models.EventStatus{models.StatusPending}},
		Change{
			Status:          models.StatusAccepted,
			AssignedManager: &by,
			History:         &models.StatusChange{Status: models.StatusAccepted, At: now, By: &by},
			At:              now,
		})
	if errors.Is(err, ErrConflict) {
		return nil, newError(ErrConflict, "Event is not in pending status")
	}
	if err != nil {
		return nil, fmt.Errorf("accept event %s: %w", id.Hex(), err)
	}
	metrics.EventTransitions.WithLabelValues(string(models.StatusPending), string(models.StatusAccepted)).Inc()

	s.notify(ctx, &models.Notification{
		User:         updated.BookedBy,
		Type:         models.NotifyUpdate,
		Title:        "Manager assigned",
		Body:         fmt.Sprintf("A manager has accepted your event \"%s\".", updated.Title),
		RelatedEvent: &updated.ID,
	})
	return updated, nil
}

// AutoAssign is the system-initiated accept used by the scheduler. It returns
// ErrConflict when the event left pending in the meantime.
func (s *Service) AutoAssign(ctx context.Context, id, manager primitive.ObjectID) (*models.Event, error) {
	now := s.now().UTC()
	updated, err := s.repo.UpdateIf(ctx, id,
		Cond{Statuses: []models.EventStatus{models.StatusPending}},
		Change{
			Status:          models.StatusAccepted,
			AssignedManager: &manager,
			History:         &models.StatusChange{Status: models.StatusAccepted, At: now},
			At:              now,
		})
	if err != nil {
		return nil, err
	}
	metrics.EventTransitions.WithLabelValues(string(models.StatusPending), string(models.StatusAccepted)).Inc()

	s.notify(ctx, &models.Notification{
		User:         manager,
		Type:         models.NotifyUpdate,
		Title:        "New event assigned",
		Body:         fmt.Sprintf("\"%s\" on %s in %s was assigned to you.", updated.Title, FormatWhen(updated.ScheduledAt), updated.Location.City),
		RelatedEvent: &updated.ID,
	})
	s.notify(ctx, &models.Notification{
		User:         updated.BookedBy,
		Type:         models.NotifyUpdate,
		Title:        "Manager assigned",
		Body:         fmt.Sprintf("A manager has been assigned to your event \"%s\".", updated.Title),
		RelatedEvent: &updated.ID,
	})
	return updated, nil
}

// Advance moves an event along the transition table on behalf of its manager.
// Admins and owners may act on events assigned to someone else.
func (s *Service) Advance(ctx context.Context, actor Actor, id primitive.ObjectID, target models.EventStatus) (*models.Event, error) {
	if !advanceTargets[target] {
		return nil, newError(ErrValidation, "Invalid status")
	}
	if !actor.isStaff() {
		return nil, newError(ErrForbidden, "Forbidden")
	}
	ev, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && !ev.IsAssignedTo(actor.ID) {
		return nil, newError(ErrForbidden, "Not your event")
	}
	if !CanTransition(ev.Status, target) {
		return nil, newError(ErrInvalidTransition, fmt.Sprintf("Cannot change status from %s to %s", ev.Status, target))
	}

	now := s.now().UTC()
	by := actor.ID
	updated, err := s.repo.UpdateIf(ctx, id,
		Cond{Statuses: []models.EventStatus{ev.Status}},
		Change{
			Status:  target,
			History: &models.StatusChange{Status: target, At: now, By: &by},
			At:      now,
		})
	if errors.Is(err, ErrConflict) {
		return nil, newError(ErrConflict, "Event status changed, please reload")
	}
	if err != nil {
		return nil, fmt.Errorf("advance event %s: %w", id.Hex(), err)
	}
	metrics.EventTransitions.WithLabelValues(string(ev.Status), string(target)).Inc()

	s.notify(ctx, &models.Notification{
		User:         updated.BookedBy,
		Type:         models.NotifyUpdate,
		Title:        "Event update",
		Body:         fmt.Sprintf("Your event \"%s\" is now %s.", updated.Title, strings.ReplaceAll(string(target), "_", " ")),
		RelatedEvent: &updated.ID,
	})
	return updated, nil
}

// Cancel lets the booking owner withdraw a pending or accepted event.
func (s *Service) Cancel(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Event, error) {
	ev, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ev.IsOwnedBy(actor.ID) {
		return nil, newError(ErrForbidden, "You can only cancel your own events")
	}
	if !isOwnerMutable(ev.Status) {
		return nil, newError(ErrInvalidTransition, "Event cannot be cancelled in current status")
	}

	now := s.now().UTC()
	by := actor.ID
	updated, err := s.repo.UpdateIf(ctx, id,
		Cond{Statuses: ownerMutable, BookedBy: &by},
		Change{
			Status:  models.StatusCancelled,
			History: &models.StatusChange{Status: models.StatusCancelled, At: now, By: &by},
			At:      now,
		})
	if errors.Is(err, ErrConflict) {
		return nil, newError(ErrConflict, "Event cannot be cancelled in current status")
	}
	if err != nil {
		return nil, fmt.Errorf("cancel event %s: %w", id.Hex(), err)
	}
	metrics.EventTransitions.WithLabelValues(string(ev.Status), string(models.StatusCancelled)).Inc()

	s.record(ctx, actor.ID, models.ActionBookingCancelled, &updated.ID)
	if updated.AssignedManager != nil {
		s.notify(ctx, &models.Notification{
			User:         *updated.AssignedManager,
			Type:         models.NotifyUpdate,
			Title:        "Event cancelled",
			Body:         fmt.Sprintf("\"%s\" scheduled for %s was cancelled by the customer.", updated.Title, FormatWhen(updated.ScheduledAt)),
			RelatedEvent: &updated.ID,
		})
	}
	return updated, nil
}

// Reschedule replaces scheduledAt only. The assignment deadline and the
// reminder guard are left untouched.
func (s *Service) Reschedule(ctx context.Context, actor Actor, id primitive.ObjectID, at time.Time) (*models.Event, error) {
	if at.IsZero() {
		return nil, newError(ErrValidation, "New date/time required")
	}
	ev, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ev.IsOwnedBy(actor.ID) {
		return nil, newError(ErrForbidden, "You can only reschedule your own events")
	}
	if !isOwnerMutable(ev.Status) {
		return nil, newError(ErrInvalidTransition, "Event cannot be rescheduled in current status")
	}

	now := s.now().UTC()
	by := actor.ID
	when := at.UTC()
	updated, err := s.repo.UpdateIf(ctx, id,
		Cond{Statuses: ownerMutable, BookedBy: &by},
		Change{ScheduledAt: &when, At: now})
	if errors.Is(err, ErrConflict) {
		return nil, newError(ErrConflict, "Event cannot be rescheduled in current status")
	}
	if err != nil {
		return nil, fmt.Errorf("reschedule event %s: %w", id.Hex(), err)
	}

	s.record(ctx, actor.ID, models.ActionBookingRescheduled, &updated.ID)
	if updated.AssignedManager != nil {
		s.notify(ctx, &models.Notification{
			User:         *updated.AssignedManager,
			Type:         models.NotifyUpdate,
			Title:        "Event rescheduled",
			Body:         fmt.Sprintf("\"%s\" moved to %s.", updated.Title, FormatWhen(updated.ScheduledAt)),
			RelatedEvent: &updated.ID,
		})
	}
	return updated, nil
}

// AssignTeam replaces the event's crew. Managers may only staff their own events.
func (s *Service) AssignTeam(ctx context.Context, actor Actor, id primitive.ObjectID, team []string) (*models.Event, error) {
	if !actor.isStaff() {
		return nil, newError(ErrForbidden, "Forbidden")
	}
	ev, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && !ev.IsAssignedTo(actor.ID) {
		return nil, newError(ErrForbidden, "Not your event")
	}

	clean := make([]string, 0, len(team))
	for _, name := range team {
		if name = strings.TrimSpace(name); name != "" {
			clean = append(clean, name)
		}
	}

	updated, err := s.repo.UpdateIf(ctx, id, Cond{}, Change{AssignedTeam: clean, SetTeam: true, At: s.now().UTC()})
	if errors.Is(err, ErrConflict) {
		return nil, newError(ErrNotFound, "Event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("assign team %s: %w", id.Hex(), err)
	}
	return updated, nil
}

func (s *Service) find(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	ev, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(ErrNotFound, "Event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", id.Hex(), err)
	}
	return ev, nil
}

// notify is best effort: the transition already happened.
func (s *Service) notify(ctx context.Context, n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("notification failed",
			zap.String("type", string(n.Type)),
			zap.String("user", n.User.Hex()),
			zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entity *primitive.ObjectID) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, user, action, "Event", entity)
}

// FormatWhen renders a schedule time the way notifications show it.
func FormatWhen(t time.Time) string {
	return t.Format("02 Jan 2006, 3:04 PM MST")
}
