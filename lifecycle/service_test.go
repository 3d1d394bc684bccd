package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"movment/lifecycle"
	"movment/lifecycle/lifecycletest"
	"movment/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	repo     *lifecycletest.MemRepo
	notifier *lifecycletest.Notifier
	activity *lifecycletest.Activity
	clock    *lifecycletest.Clock
	svc      *lifecycle.Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     lifecycletest.NewMemRepo(),
		notifier: &lifecycletest.Notifier{},
		activity: &lifecycletest.Activity{},
		clock:    lifecycletest.NewClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)),
	}
	f.svc = lifecycle.NewService(f.repo, f.notifier, f.activity, zap.NewNop(), lifecycle.WithClock(f.clock.Now))
	return f
}

func customer() lifecycle.Actor {
	return lifecycle.Actor{ID: primitive.NewObjectID(), Role: models.RoleUser}
}

func manager() lifecycle.Actor {
	return lifecycle.Actor{ID: primitive.NewObjectID(), Role: models.RoleManager}
}

func validInput() lifecycle.CreateInput {
	return lifecycle.CreateInput{
		Type:        "birthday",
		Title:       "  Asha turns 30 ",
		ScheduledAt: time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		AddressLine: "12 MG Road",
		City:        "Chennai",
		Pincode:     "600001",
		AdditionalServices: []models.ServiceRequest{
			{Service: "decoration"},
			{Service: "  "},
		},
	}
}

func (f *fixture) create(t *testing.T, owner lifecycle.Actor) *models.Event {
	t.Helper()
	ev, err := f.svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
	return ev
}

func TestCreateSetsDeadlineHistoryAndConfirmation(t *testing.T) {
	f := newFixture()
	owner := customer()

	ev := f.create(t, owner)

	assert.Equal(t, models.StatusPending, ev.Status)
	assert.Equal(t, "Asha turns 30", ev.Title)
	assert.Equal(t, 1, ev.GuestCount)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), ev.AutoAssignDeadline)
	require.Len(t, ev.StatusHistory, 1)
	assert.Equal(t, models.StatusPending, ev.StatusHistory[0].Status)
	assert.Equal(t, owner.ID, *ev.StatusHistory[0].By)
	assert.Len(t, ev.AdditionalServices, 1)

	confirmations := f.notifier.OfType(models.NotifyBookingConfirmation)
	require.Len(t, confirmations, 1)
	assert.Equal(t, owner.ID, confirmations[0].User)
	assert.Contains(t, confirmations[0].Body, `Your event "Asha turns 30" is scheduled for`)
	assert.Equal(t, []models.ActivityAction{models.ActionBookingCreated}, f.activity.Actions)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()

	in := validInput()
	in.Pincode = ""
	_, err := f.svc.Create(context.Background(), customer(), in)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	assert.Equal(t, "Missing required fields", lifecycle.Message(err))

	in = validInput()
	in.Type = "wedding"
	_, err = f.svc.Create(context.Background(), customer(), in)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestAcceptAssignsManager(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())
	mgr := manager()

	got, err := f.svc.Accept(context.Background(), mgr, ev.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.True(t, got.IsAssignedTo(mgr.ID))
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, mgr.ID, *got.StatusHistory[1].By)
}

func TestSecondAcceptFails(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())

	_, err := f.svc.Accept(context.Background(), manager(), ev.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), manager(), ev.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Equal(t, "Event is not in pending status", lifecycle.Message(err))
	assert.Equal(t, 400, lifecycle.HTTPStatus(err))
}

func TestConcurrentAcceptsHaveOneWinner(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())

	const racers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Accept(context.Background(), manager(), ev.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Len(t, f.repo.Get(ev.ID).StatusHistory, 2)
}

func TestAcceptMissingEvent(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Accept(context.Background(), manager(), primitive.NewObjectID())
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.Equal(t, 404, lifecycle.HTTPStatus(err))
}

func TestAdvanceFollowsTable(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())
	mgr := manager()
	ctx := context.Background()

	_, err := f.svc.Advance(ctx, mgr, ev.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden, "unassigned manager")

	_, err = f.svc.Accept(ctx, mgr, ev.ID)
	require.NoError(t, err)

	_, err = f.svc.Advance(ctx, mgr, ev.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "accepted cannot jump to completed")

	got, err := f.svc.Advance(ctx, mgr, ev.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)

	_, err = f.svc.Advance(ctx, mgr, ev.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "in_progress cannot be cancelled")

	got, err = f.svc.Advance(ctx, mgr, ev.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Len(t, got.StatusHistory, 4)

	_, err = f.svc.Advance(ctx, mgr, ev.ID, models.StatusInProgress)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "completed is terminal")
}

func TestAdvanceRejectsUnknownTarget(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())

	_, err := f.svc.Advance(context.Background(), manager(), ev.ID, models.StatusAccepted)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	assert.Equal(t, "Invalid status", lifecycle.Message(err))
}

func TestAdminMayAdvanceOthersEvents(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())
	ctx := context.Background()
	_, err := f.svc.Accept(ctx, manager(), ev.ID)
	require.NoError(t, err)

	admin := lifecycle.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	got, err := f.svc.Advance(ctx, admin, ev.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestCancelRules(t *testing.T) {
	f := newFixture()
	owner := customer()
	ctx := context.Background()
	ev := f.create(t, owner)

	_, err := f.svc.Cancel(ctx, customer(), ev.ID)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)
	assert.Equal(t, "You can only cancel your own events", lifecycle.Message(err))

	got, err := f.svc.Cancel(ctx, owner, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Contains(t, f.activity.Actions, models.ActionBookingCancelled)

	_, err = f.svc.Cancel(ctx, owner, ev.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "cancelled twice")
	assert.Equal(t, "Event cannot be cancelled in current status", lifecycle.Message(err))
}

func TestCancelCompletedFails(t *testing.T) {
	f := newFixture()
	owner := customer()
	ev := f.create(t, owner)
	stored := f.repo.Get(ev.ID)
	stored.Status = models.StatusCompleted
	f.repo.Put(stored)

	_, err := f.svc.Cancel(context.Background(), owner, ev.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestCancelNotifiesAssignedManager(t *testing.T) {
	f := newFixture()
	owner := customer()
	mgr := manager()
	ctx := context.Background()
	ev := f.create(t, owner)
	_, err := f.svc.Accept(ctx, mgr, ev.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, owner, ev.ID)
	require.NoError(t, err)

	var toManager int
	for _, n := range f.notifier.Sent {
		if n.User == mgr.ID && n.Title == "Event cancelled" {
			toManager++
		}
	}
	assert.Equal(t, 1, toManager)
}

func TestRescheduleKeepsDeadlineAndGuard(t *testing.T) {
	f := newFixture()
	owner := customer()
	ctx := context.Background()
	ev := f.create(t, owner)
	sent := f.clock.Now()
	stored := f.repo.Get(ev.ID)
	stored.ReminderSentAt = &sent
	f.repo.Put(stored)

	when := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	got, err := f.svc.Reschedule(ctx, owner, ev.ID, when)
	require.NoError(t, err)

	assert.Equal(t, when, got.ScheduledAt)
	assert.Equal(t, ev.AutoAssignDeadline, got.AutoAssignDeadline)
	require.NotNil(t, got.ReminderSentAt)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Len(t, got.StatusHistory, 1)
	assert.Contains(t, f.activity.Actions, models.ActionBookingRescheduled)

	_, err = f.svc.Reschedule(ctx, owner, ev.ID, time.Time{})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	_, err = f.svc.Reschedule(ctx, customer(), ev.ID, when)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)
}

func TestAutoAssignLosesToManualAccept(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())
	ctx := context.Background()

	_, err := f.svc.Accept(ctx, manager(), ev.ID)
	require.NoError(t, err)

	_, err = f.svc.AutoAssign(ctx, ev.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestAutoAssignRecordsSystemHistory(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())
	mgr := primitive.NewObjectID()

	got, err := f.svc.AutoAssign(context.Background(), ev.ID, mgr)
	require.NoError(t, err)

	assert.True(t, got.IsAssignedTo(mgr))
	last := got.StatusHistory[len(got.StatusHistory)-1]
	assert.Equal(t, models.StatusAccepted, last.Status)
	assert.Nil(t, last.By)

	var toManager int
	for _, n := range f.notifier.Sent {
		if n.User == mgr {
			toManager++
		}
	}
	assert.Equal(t, 1, toManager)
}

func TestAssignTeam(t *testing.T) {
	f := newFixture()
	ev := f.create(t, customer())
	mgr := manager()
	ctx := context.Background()

	_, err := f.svc.AssignTeam(ctx, mgr, ev.ID, []string{"Ravi"})
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = f.svc.Accept(ctx, mgr, ev.ID)
	require.NoError(t, err)

	got, err := f.svc.AssignTeam(ctx, mgr, ev.ID, []string{" Ravi ", "", "Meena"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ravi", "Meena"}, got.AssignedTeam)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture()
	f.notifier.Fail = errors.New("store down")

	ev, err := f.svc.Create(context.Background(), customer(), validInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ev.Status)
}
