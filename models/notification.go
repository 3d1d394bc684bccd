package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotifyBookingConfirmation NotificationType = "booking_confirmation"
	NotifyReminder            NotificationType = "reminder"
	NotifyUpdate              NotificationType = "update"
	NotifyOffer               NotificationType = "offer"
	NotifyDiscount            NotificationType = "discount"
	NotifySupportReply        NotificationType = "support_reply"
	NotifyGeneral             NotificationType = "general"
	NotifyEmergencyAlert      NotificationType = "emergency_alert"
)

var NotificationTypes = []NotificationType{
	NotifyBookingConfirmation, NotifyReminder, NotifyUpdate, NotifyOffer,
	NotifyDiscount, NotifySupportReply, NotifyGeneral, NotifyEmergencyAlert,
}

func (t NotificationType) Valid() bool {
	for _, v := range NotificationTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Notification struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	User         primitive.ObjectID  `json:"user" bson:"user"`
	Type         NotificationType    `json:"type" bson:"type"`
	Title        string              `json:"title" bson:"title"`
	Body         string              `json:"body" bson:"body"`
	Link         string              `json:"link,omitempty" bson:"link,omitempty"`
	Read         bool                `json:"read" bson:"read"`
	RelatedEvent *primitive.ObjectID `json:"relatedEvent,omitempty" bson:"relatedEvent,omitempty"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
}

const (
	FromUser    = "user"
	FromManager = "manager"
	FromSupport = "support"
)

type ConversationMessage struct {
	From string    `json:"from" bson:"from"`
	Text string    `json:"text" bson:"text"`
	At   time.Time `json:"at" bson:"at"`
}

// ManagerConversation is the per-event chat between a customer and the assigned manager.
type ManagerConversation struct {
	ID        primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	Event     primitive.ObjectID    `json:"event" bson:"event"`
	User      primitive.ObjectID    `json:"user" bson:"user"`
	Manager   primitive.ObjectID    `json:"manager" bson:"manager"`
	Messages  []ConversationMessage `json:"messages" bson:"messages"`
	CreatedAt time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt" bson:"updatedAt"`
}

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

var TicketCategories = []string{"query", "complaint", "feedback", "other"}

type TicketReply struct {
	From    string    `json:"from" bson:"from"`
	Message string    `json:"message" bson:"message"`
	At      time.Time `json:"at" bson:"at"`
}

type SupportTicket struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	User         primitive.ObjectID  `json:"user" bson:"user"`
	Subject      string              `json:"subject" bson:"subject"`
	Message      string              `json:"message" bson:"message"`
	Status       TicketStatus        `json:"status" bson:"status"`
	Category     string              `json:"category" bson:"category"`
	RelatedEvent *primitive.ObjectID `json:"relatedEvent,omitempty" bson:"relatedEvent,omitempty"`
	Replies      []TicketReply       `json:"replies" bson:"replies"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
}
