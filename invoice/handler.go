package invoice

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"movment/config"
	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type EventFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type PaymentLister interface {
	ListForEvent(ctx context.Context, event primitive.ObjectID) ([]models.Payment, error)
}

type Handler struct {
	events   EventFinder
	users    UserFinder
	payments PaymentLister
	cfg      config.InvoiceConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(events EventFinder, users UserFinder, payments PaymentLister, cfg config.InvoiceConfig, logger *zap.Logger) *Handler {
	return &Handler{events: events, users: users, payments: payments, cfg: cfg, logger: logger, now: time.Now}
}

type party struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Phone string             `json:"phone,omitempty"`
}

func partyOf(u *models.User) *party {
	if u == nil {
		return nil
	}
	return &party{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// view is the JSON rendition of an invoice or receipt.
type view struct {
	Type               string                  `json:"type"`
	InvoiceNumber      string                  `json:"invoiceNumber"`
	EventID            primitive.ObjectID      `json:"eventId"`
	Title              string                  `json:"title"`
	EventType          string                  `json:"eventType"`
	ScheduledAt        time.Time               `json:"scheduledAt"`
	GuestCount         int                     `json:"guestCount"`
	Venue              string                  `json:"venue,omitempty"`
	Location           models.EventLocation    `json:"location"`
	AdditionalServices []models.ServiceRequest `json:"additionalServices"`
	BookedBy           *party                  `json:"bookedBy"`
	AssignedManager    *party                  `json:"assignedManager"`
	Status             models.EventStatus      `json:"status"`
	Payments           []models.Payment        `json:"payments"`
	PaidTotal          float64                 `json:"paidTotal"`
	CreatedAt          time.Time               `json:"createdAt"`
}

// Get handles GET /api/user/invoice/:eventId[?format=pdf|receipt]. Only the
// customer who booked the event may see it.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "eventId")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	data, err := h.load(ctx, id, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "pdf" {
		h.writePDF(w, data)
		return
	}
	kind := "invoice"
	if format == "receipt" {
		kind = "receipt"
	}
	ev := data.Event
	utils.RespondWithJSON(w, http.StatusOK, view{
		Type:               kind,
		InvoiceNumber:      Number(ev.ID),
		EventID:            ev.ID,
		Title:              ev.Title,
		EventType:          ev.Type,
		ScheduledAt:        ev.ScheduledAt,
		GuestCount:         ev.GuestCount,
		Venue:              ev.Venue,
		Location:           ev.Location,
		AdditionalServices: ev.AdditionalServices,
		BookedBy:           partyOf(&data.Client),
		AssignedManager:    partyOf(data.Manager),
		Status:             ev.Status,
		Payments:           data.Payments,
		PaidTotal:          paidTotal(data.Payments),
		CreatedAt:          ev.CreatedAt,
	})
}

func (h *Handler) load(ctx context.Context, id, caller primitive.ObjectID) (Data, error) {
	ev, err := h.events.FindByID(ctx, id)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return Data{}, lifecycle.NotFound("Event not found")
	}
	if err != nil {
		return Data{}, err
	}
	if ev.BookedBy != caller {
		return Data{}, lifecycle.Forbidden("Forbidden")
	}

	client, err := h.users.FindByID(ctx, ev.BookedBy)
	if err != nil {
		return Data{}, err
	}
	d := Data{Event: *ev, Client: *client}
	if ev.AssignedManager != nil {
		mgr, err := h.users.FindByID(ctx, *ev.AssignedManager)
		switch {
		case err == nil:
			d.Manager = mgr
		case !errors.Is(err, lifecycle.ErrNotFound):
			return Data{}, err
		}
	}
	if d.Payments, err = h.payments.ListForEvent(ctx, ev.ID); err != nil {
		return Data{}, err
	}
	return d, nil
}

func (h *Handler) writePDF(w http.ResponseWriter, d Data) {
	var buf bytes.Buffer
	if err := Render(&buf, d, h.cfg, h.now()); err != nil || buf.Len() == 0 {
		h.logger.Error("render invoice", zap.String("event", d.Event.ID.Hex()), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate invoice PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+d.Event.ID.Hex()+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
