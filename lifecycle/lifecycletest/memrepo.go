// Package lifecycletest provides in-memory stores for exercising the event
// lifecycle without a database.
package lifecycletest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"movment/lifecycle"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemRepo is a goroutine-safe event store with the same conditional-update
// semantics as the Mongo repository.
type MemRepo struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]models.Event
}

func NewMemRepo() *MemRepo {
	return &MemRepo{events: make(map[primitive.ObjectID]models.Event)}
}

func (m *MemRepo) Insert(_ context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if _, ok := m.events[ev.ID]; ok {
		return errors.New("duplicate id")
	}
	m.events[ev.ID] = clone(*ev)
	return nil
}

func (m *MemRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	out := clone(ev)
	return &out, nil
}

func (m *MemRepo) UpdateIf(_ context.Context, id primitive.ObjectID, cond lifecycle.Cond, change lifecycle.Change) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || !matches(ev, cond) {
		return nil, lifecycle.ErrConflict
	}
	if change.Status != "" {
		ev.Status = change.Status
	}
	if change.AssignedManager != nil {
		mgr := *change.AssignedManager
		ev.AssignedManager = &mgr
	}
	if change.ScheduledAt != nil {
		ev.ScheduledAt = *change.ScheduledAt
	}
	if change.SetTeam {
		ev.AssignedTeam = append([]string{}, change.AssignedTeam...)
	}
	if change.History != nil {
		ev.StatusHistory = append(ev.StatusHistory, *change.History)
	}
	ev.UpdatedAt = change.At
	m.events[id] = ev
	out := clone(ev)
	return &out, nil
}

func (m *MemRepo) DueForAutoAssign(_ context.Context, now time.Time) ([]models.Event, error) {
	return m.filter(func(ev models.Event) bool {
		return ev.Status == models.StatusPending && !ev.AutoAssignDeadline.After(now)
	}, byScheduled), nil
}

func (m *MemRepo) UpcomingUnreminded(_ context.Context, from, to time.Time) ([]models.Event, error) {
	return m.filter(func(ev models.Event) bool {
		active := ev.Status == models.StatusAccepted || ev.Status == models.StatusInProgress
		return active && ev.ReminderSentAt == nil && !ev.ScheduledAt.Before(from) && !ev.ScheduledAt.After(to)
	}, byScheduled), nil
}

func (m *MemRepo) ClaimReminder(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.ReminderSentAt != nil {
		return false, nil
	}
	stamp := at
	ev.ReminderSentAt = &stamp
	m.events[id] = ev
	return true, nil
}

func (m *MemRepo) ReleaseReminder(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return lifecycle.ErrNotFound
	}
	ev.ReminderSentAt = nil
	m.events[id] = ev
	return nil
}

func (m *MemRepo) ListByOwner(_ context.Context, owner primitive.ObjectID) ([]models.Event, error) {
	return m.filter(func(ev models.Event) bool { return ev.BookedBy == owner }, byCreatedDesc), nil
}

func (m *MemRepo) ListPending(_ context.Context, city string) ([]models.Event, error) {
	return m.filter(func(ev models.Event) bool {
		return ev.Status == models.StatusPending && (city == "" || ev.Location.City == city)
	}, byScheduled), nil
}

func (m *MemRepo) ListAssigned(_ context.Context, manager primitive.ObjectID) ([]models.Event, error) {
	return m.filter(func(ev models.Event) bool {
		active := ev.Status == models.StatusAccepted || ev.Status == models.StatusInProgress
		return active && ev.IsAssignedTo(manager)
	}, byScheduled), nil
}

// Put stores ev as-is, bypassing the lifecycle. Tests use it to set up state.
func (m *MemRepo) Put(ev models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = clone(ev)
}

// Get returns the stored copy of id.
func (m *MemRepo) Get(id primitive.ObjectID) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.events[id])
}

func (m *MemRepo) filter(keep func(models.Event) bool, less func(a, b models.Event) bool) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for _, ev := range m.events {
		if keep(ev) {
			out = append(out, clone(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byScheduled(a, b models.Event) bool { return a.ScheduledAt.Before(b.ScheduledAt) }

func byCreatedDesc(a, b models.Event) bool { return a.CreatedAt.After(b.CreatedAt) }

func matches(ev models.Event, cond lifecycle.Cond) bool {
	if cond.BookedBy != nil && ev.BookedBy != *cond.BookedBy {
		return false
	}
	if len(cond.Statuses) == 0 {
		return true
	}
	for _, s := range cond.Statuses {
		if ev.Status == s {
			return true
		}
	}
	return false
}

func clone(ev models.Event) models.Event {
	ev.StatusHistory = append([]models.StatusChange(nil), ev.StatusHistory...)
	ev.AssignedTeam = append([]string(nil), ev.AssignedTeam...)
	ev.AdditionalServices = append([]models.ServiceRequest(nil), ev.AdditionalServices...)
	if ev.AssignedManager != nil {
		mgr := *ev.AssignedManager
		ev.AssignedManager = &mgr
	}
	if ev.ReminderSentAt != nil {
		t := *ev.ReminderSentAt
		ev.ReminderSentAt = &t
	}
	return ev
}

// Notifier records notifications. Set Fail to make Notify return an error.
type Notifier struct {
	mu   sync.Mutex
	Fail error
	Sent []models.Notification
}

func (n *Notifier) Notify(_ context.Context, note *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Fail != nil {
		return n.Fail
	}
	n.Sent = append(n.Sent, *note)
	return nil
}

// OfType returns the recorded notifications of type t.
func (n *Notifier) OfType(t models.NotificationType) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, note := range n.Sent {
		if note.Type == t {
			out = append(out, note)
		}
	}
	return out
}

// Activity records activity entries.
type Activity struct {
	mu      sync.Mutex
	Actions []models.ActivityAction
}

func (a *Activity) Record(_ context.Context, _ primitive.ObjectID, action models.ActivityAction, _ string, _ *primitive.ObjectID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Actions = append(a.Actions, action)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
