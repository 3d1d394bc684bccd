package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
	RoleOwner   = "owner"
)

type UserLocation struct {
	City        string       `json:"city,omitempty" bson:"city,omitempty"`
	Area        string       `json:"area,omitempty" bson:"area,omitempty"`
	AddressLine string       `json:"addressLine,omitempty" bson:"addressLine,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

type Preferences struct {
	PreferredEventTypes []string `json:"preferredEventTypes,omitempty" bson:"preferredEventTypes,omitempty"`
	PreferredCity       string   `json:"preferredCity,omitempty" bson:"preferredCity,omitempty"`
}

type User struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	PasswordHash   string             `json:"-" bson:"passwordHash"`
	Role           string             `json:"role" bson:"role"`
	Approved       bool               `json:"approved" bson:"approved"`
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfilePicture string             `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	Location       UserLocation       `json:"location" bson:"location"`
	Preferences    Preferences        `json:"preferences" bson:"preferences"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// IsStaff reports whether the user may act on events as a manager.
func (u *User) IsStaff() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin || u.Role == RoleOwner
}

// UserSummary is the public projection used when embedding a user in another payload.
type UserSummary struct {
	ID    primitive.ObjectID `json:"id" bson:"_id"`
	Name  string             `json:"name" bson:"name"`
	Email string             `json:"email" bson:"email"`
	Phone string             `json:"phone,omitempty" bson:"phone,omitempty"`
}

type ManagerRequestStatus string

const (
	RequestPending  ManagerRequestStatus = "pending"
	RequestApproved ManagerRequestStatus = "approved"
	RequestRejected ManagerRequestStatus = "rejected"
)

type ManagerRequest struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	User        primitive.ObjectID   `json:"user" bson:"user"`
	Status      ManagerRequestStatus `json:"status" bson:"status"`
	Message     string               `json:"message,omitempty" bson:"message,omitempty"`
	ProcessedBy *primitive.ObjectID  `json:"processedBy,omitempty" bson:"processedBy,omitempty"`
	ProcessedAt *time.Time           `json:"processedAt,omitempty" bson:"processedAt,omitempty"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}

type ActivityAction string

const (
	ActionLogin              ActivityAction = "login"
	ActionLogout             ActivityAction = "logout"
	ActionBookingCreated     ActivityAction = "booking_created"
	ActionBookingCancelled   ActivityAction = "booking_cancelled"
	ActionBookingRescheduled ActivityAction = "booking_rescheduled"
	ActionPayment            ActivityAction = "payment"
	ActionFeedback           ActivityAction = "feedback"
	ActionSupportTicket      ActivityAction = "support_ticket"
	ActionChatMessage        ActivityAction = "chat_message"
	ActionProfileUpdate      ActivityAction = "profile_update"
)

type UserActivity struct {
	ID         primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	User       primitive.ObjectID  `json:"user" bson:"user"`
	Action     ActivityAction      `json:"action" bson:"action"`
	EntityType string              `json:"entityType,omitempty" bson:"entityType,omitempty"`
	EntityID   *primitive.ObjectID `json:"entityId,omitempty" bson:"entityId,omitempty"`
	IP         string              `json:"ip,omitempty" bson:"ip,omitempty"`
	CreatedAt  time.Time           `json:"createdAt" bson:"createdAt"`
}
