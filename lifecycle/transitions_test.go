package lifecycle

import (
	"testing"

	"movment/models"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]models.EventStatus]bool{
		{models.StatusPending, models.StatusAccepted}:      true,
		{models.StatusPending, models.StatusCancelled}:     true,
		{models.StatusAccepted, models.StatusInProgress}:   true,
		{models.StatusAccepted, models.StatusCancelled}:    true,
		{models.StatusInProgress, models.StatusCompleted}:  true,
	}

	for _, from := range models.EventStatuses {
		for _, to := range models.EventStatuses {
			want := allowed[[2]models.EventStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, Terminal(models.StatusCompleted))
	assert.True(t, Terminal(models.StatusCancelled))
	assert.False(t, Terminal(models.StatusPending))
	assert.False(t, Terminal(models.StatusInProgress))
}
