// Package pay records customer payments against bookings and runs the admin
// refund workflow. There is no gateway: payments are stored as completed.
package pay

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type EventFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
}

type Payments interface {
	Insert(ctx context.Context, p *models.Payment) error
	ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.Payment, error)
}

type Refunds interface {
	Insert(ctx context.Context, rf *models.Refund) error
	List(ctx context.Context, status models.RefundStatus) ([]models.Refund, error)
	Decide(ctx context.Context, id primitive.ObjectID, status models.RefundStatus, note string, by primitive.ObjectID, at time.Time) (*models.Refund, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID)
}

type Handler struct {
	events   EventFinder
	payments Payments
	refunds  Refunds
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(events EventFinder, payments Payments, refunds Refunds, activity ActivityRecorder, logger *zap.Logger) *Handler {
	return &Handler{events: events, payments: payments, refunds: refunds, activity: activity, logger: logger, now: time.Now}
}

var errEventNotFound = lifecycle.NotFound("Event not found")

type paymentRequest struct {
	EventID  string          `json:"eventId"`
	Amount   utils.FlexFloat `json:"amount"`
	Currency string          `json:"currency"`
	Method   string          `json:"method"`
}

// ReceiptURL is where the customer downloads the receipt for a booking.
func ReceiptURL(event primitive.ObjectID) string {
	return "/api/user/invoice/" + event.Hex() + "?format=receipt"
}

// CreatePayment handles POST /api/user/payments {eventId, amount, method}.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req paymentRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}
	amount := req.Amount.Ptr()
	if req.EventID == "" || amount == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Event and amount required")
		return
	}
	if *amount < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Amount must not be negative")
		return
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = "other"
	}
	if !slices.Contains(models.PaymentMethods, method) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payment method")
		return
	}
	eventID, err := primitive.ObjectIDFromHex(req.EventID)
	if err != nil {
		utils.RespondWithErr(w, h.logger, errEventNotFound)
		return
	}

	user := utils.GetUserIDFromRequest(r)
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	ev, err := h.events.FindByID(ctx, eventID)
	if errors.Is(err, lifecycle.ErrNotFound) || (err == nil && ev.BookedBy != user) {
		err = errEventNotFound
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	now := h.now().UTC()
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	p := &models.Payment{
		User:       user,
		Event:      eventID,
		Amount:     *amount,
		Currency:   currency,
		Method:     method,
		Status:     models.PaymentCompleted,
		ExternalID: "stub_" + uuid.NewString(),
		ReceiptURL: ReceiptURL(eventID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.payments.Insert(ctx, p); err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	h.activity.Record(ctx, user, models.ActionPayment, "payment", &p.ID)
	utils.RespondWithJSON(w, http.StatusCreated, struct {
		*models.Payment
		Message string `json:"message"`
	}{p, "Payment recorded. Receipt available in booking history."})
}

// ListPayments handles GET /api/user/payments, newest first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.payments.ListForUser(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
