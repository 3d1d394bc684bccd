package lifecycle

import "movment/models"

// transitions lists every legal edge of the event state machine. Completed and
// cancelled are terminal.
var transitions = map[models.EventStatus][]models.EventStatus{
	models.StatusPending:    {models.StatusAccepted, models.StatusCancelled},
	models.StatusAccepted:   {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the table.
func CanTransition(from, to models.EventStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func Terminal(s models.EventStatus) bool {
	return len(transitions[s]) == 0
}

// advanceTargets are the statuses a manager may request through the status endpoint.
var advanceTargets = map[models.EventStatus]bool{
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
	models.StatusCancelled:  true,
}

// ownerMutable are the statuses in which the booking owner may still cancel or reschedule.
var ownerMutable = []models.EventStatus{models.StatusPending, models.StatusAccepted}

func isOwnerMutable(s models.EventStatus) bool {
	for _, v := range ownerMutable {
		if v == s {
			return true
		}
	}
	return false
}
