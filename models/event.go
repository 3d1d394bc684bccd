package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStatus string

const (
	StatusPending    EventStatus = "pending"
	StatusAccepted   EventStatus = "accepted"
	StatusInProgress EventStatus = "in_progress"
	StatusCompleted  EventStatus = "completed"
	StatusCancelled  EventStatus = "cancelled"
)

var EventStatuses = []EventStatus{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled}

func (s EventStatus) Valid() bool {
	for _, v := range EventStatuses {
		if v == s {
			return true
		}
	}
	return false
}

var EventTypes = []string{"birthday", "surprise", "anniversary", "farewell", "software_launch", "corporate", "other"}

var AdditionalServices = []string{"decoration", "food", "equipment", "photography", "music_dj", "catering", "venue_setup"}

func ValidEventType(t string) bool {
	for _, v := range EventTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

type EventLocation struct {
	AddressLine string       `json:"addressLine" bson:"addressLine"`
	City        string       `json:"city" bson:"city"`
	Pincode     string       `json:"pincode" bson:"pincode"`
	Landmark    string       `json:"landmark,omitempty" bson:"landmark,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	MapLink     string       `json:"mapLink,omitempty" bson:"mapLink,omitempty"`
}

type ServiceRequest struct {
	Service     string `json:"service" bson:"service"`
	Description string `json:"description" bson:"description"`
	Image       string `json:"image,omitempty" bson:"image,omitempty"`
}

// StatusChange is one entry of an event's append-only history. A nil By marks
// a system transition.
type StatusChange struct {
	Status EventStatus         `json:"status" bson:"status"`
	At     time.Time           `json:"at" bson:"at"`
	By     *primitive.ObjectID `json:"by,omitempty" bson:"by,omitempty"`
}

type Event struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	BookedBy           primitive.ObjectID  `json:"bookedBy" bson:"bookedBy"`
	AssignedManager    *primitive.ObjectID `json:"assignedManager,omitempty" bson:"assignedManager,omitempty"`
	AssignedTeam       []string            `json:"assignedTeam" bson:"assignedTeam"`
	Type               string              `json:"type" bson:"type"`
	Title              string              `json:"title" bson:"title"`
	Description        string              `json:"description,omitempty" bson:"description,omitempty"`
	ScheduledAt        time.Time           `json:"scheduledAt" bson:"scheduledAt"`
	GuestCount         int                 `json:"guestCount" bson:"guestCount"`
	Venue              string              `json:"venue,omitempty" bson:"venue,omitempty"`
	Location           EventLocation       `json:"location" bson:"location"`
	AdditionalServices []ServiceRequest    `json:"additionalServices" bson:"additionalServices"`
	CustomRequests     string              `json:"customRequests,omitempty" bson:"customRequests,omitempty"`
	Status             EventStatus         `json:"status" bson:"status"`
	StatusHistory      []StatusChange      `json:"statusHistory" bson:"statusHistory"`
	AutoAssignDeadline time.Time           `json:"autoAssignDeadline" bson:"autoAssignDeadline"`
	ReminderSentAt     *time.Time          `json:"reminderSentAt,omitempty" bson:"reminderSentAt,omitempty"`
	CreatedAt          time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt" bson:"updatedAt"`

	// Set by geo-filtered listings only.
	DistanceKm *float64 `json:"distanceKm,omitempty" bson:"-"`
}

func (e *Event) IsOwnedBy(id primitive.ObjectID) bool {
	return e.BookedBy == id
}

func (e *Event) IsAssignedTo(id primitive.ObjectID) bool {
	return e.AssignedManager != nil && *e.AssignedManager == id
}
