package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultCurrency = "INR"

var PaymentMethods = []string{"card", "upi", "wallet", "netbanking", "split", "other"}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentCompleted         PaymentStatus = "completed"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type Payment struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	User           primitive.ObjectID `json:"user" bson:"user"`
	Event          primitive.ObjectID `json:"event" bson:"event"`
	Amount         float64            `json:"amount" bson:"amount"`
	Currency       string             `json:"currency" bson:"currency"`
	Method         string             `json:"method" bson:"method"`
	Status         PaymentStatus      `json:"status" bson:"status"`
	ExternalID     string             `json:"externalId,omitempty" bson:"externalId,omitempty"`
	ReceiptURL     string             `json:"receiptUrl,omitempty" bson:"receiptUrl,omitempty"`
	RefundedAmount float64            `json:"refundedAmount" bson:"refundedAmount"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundProcessed RefundStatus = "processed"
	RefundRejected  RefundStatus = "rejected"
)

type Refund struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Event       primitive.ObjectID  `json:"event" bson:"event"`
	User        primitive.ObjectID  `json:"user" bson:"user"`
	Payment     *primitive.ObjectID `json:"payment,omitempty" bson:"payment,omitempty"`
	Amount      float64             `json:"amount" bson:"amount"`
	Reason      string              `json:"reason" bson:"reason"`
	Status      RefundStatus        `json:"status" bson:"status"`
	ProcessedBy *primitive.ObjectID `json:"processedBy,omitempty" bson:"processedBy,omitempty"`
	ProcessedAt *time.Time          `json:"processedAt,omitempty" bson:"processedAt,omitempty"`
	AdminNote   string              `json:"adminNote,omitempty" bson:"adminNote,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`
}

type Promotion struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code           string             `json:"code" bson:"code"`
	Type           string             `json:"type" bson:"type"`
	Value          float64            `json:"value" bson:"value"`
	MinOrderAmount float64            `json:"minOrderAmount" bson:"minOrderAmount"`
	ValidFrom      time.Time          `json:"validFrom" bson:"validFrom"`
	ValidTo        time.Time          `json:"validTo" bson:"validTo"`
	EventType      string             `json:"eventType,omitempty" bson:"eventType,omitempty"`
	MaxUses        *int               `json:"maxUses" bson:"maxUses"`
	UsedCount      int                `json:"usedCount" bson:"usedCount"`
	Active         bool               `json:"active" bson:"active"`
	CreatedBy      primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

var ResourceTypes = []string{"decoration", "equipment", "catering", "other"}

type Resource struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Manager   primitive.ObjectID `json:"manager" bson:"manager"`
	Name      string             `json:"name" bson:"name"`
	Type      string             `json:"type" bson:"type"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	Unit      string             `json:"unit" bson:"unit"`
	Available bool               `json:"available" bson:"available"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Feedback struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Event            primitive.ObjectID `json:"event" bson:"event"`
	User             primitive.ObjectID `json:"user" bson:"user"`
	Manager          primitive.ObjectID `json:"manager" bson:"manager"`
	Rating           int                `json:"rating" bson:"rating"`
	Comment          string             `json:"comment,omitempty" bson:"comment,omitempty"`
	ManagerReply     string             `json:"managerReply,omitempty" bson:"managerReply,omitempty"`
	ManagerRepliedAt *time.Time         `json:"managerRepliedAt,omitempty" bson:"managerRepliedAt,omitempty"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type SurveyAnswer struct {
	QuestionID string `json:"questionId" bson:"questionId"`
	Question   string `json:"question" bson:"question"`
	Value      any    `json:"value" bson:"value"`
}

type Survey struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Event     primitive.ObjectID `json:"event" bson:"event"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	Answers   []SurveyAnswer     `json:"answers" bson:"answers"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// IdempotencyRecord stores the first response to a keyed mutating request so
// retries replay it instead of writing twice.
type IdempotencyRecord struct {
	Key         string             `json:"key" bson:"key"`
	User        primitive.ObjectID `json:"user" bson:"user"`
	Method      string             `json:"method" bson:"method"`
	Path        string             `json:"path" bson:"path"`
	RequestHash string             `json:"requestHash" bson:"requestHash"`
	Status      int                `json:"status,omitempty" bson:"status,omitempty"`
	Body        []byte             `json:"-" bson:"body,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	ExpiresAt   time.Time          `json:"expiresAt" bson:"expiresAt"`
}

// Done reports whether the original response has been captured.
func (r *IdempotencyRecord) Done() bool {
	return r.Status != 0
}
