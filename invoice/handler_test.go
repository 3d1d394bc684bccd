package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"movment/config"
	"movment/globals"
	"movment/lifecycle"
	"movment/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubEvents map[primitive.ObjectID]models.Event

func (s stubEvents) FindByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	ev, ok := s[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	return &ev, nil
}

type stubUsers map[primitive.ObjectID]models.User

func (s stubUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	return &u, nil
}

type stubPayments []models.Payment

func (s stubPayments) ListForEvent(_ context.Context, event primitive.ObjectID) ([]models.Payment, error) {
	out := []models.Payment{}
	for _, p := range s {
		if p.Event == event {
			out = append(out, p)
		}
	}
	return out, nil
}

func setup() (*Handler, models.Event, models.User) {
	client := models.User{ID: primitive.NewObjectID(), Name: "Ravi", Email: "ravi@example.com", Role: models.RoleUser}
	mgr := models.User{ID: primitive.NewObjectID(), Name: "Meena", Role: models.RoleManager}
	ev := models.Event{
		ID:              primitive.NewObjectID(),
		BookedBy:        client.ID,
		AssignedManager: &mgr.ID,
		Title:           "Sangeet",
		Type:            "wedding",
		Status:          models.StatusAccepted,
		Location:        models.EventLocation{City: "Chennai"},
	}
	payments := stubPayments{{Event: ev.ID, Amount: 2500, Status: models.PaymentCompleted}}
	h := NewHandler(stubEvents{ev.ID: ev}, stubUsers{client.ID: client, mgr.ID: mgr}, payments,
		config.InvoiceConfig{CompanyName: "Mov-Ment", PaymentDays: 7}, zap.NewNop())
	return h, ev, client
}

func get(h *Handler, as models.User, id primitive.ObjectID, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/user/invoice/"+id.Hex()+query, nil)
	req = req.WithContext(context.WithValue(req.Context(), globals.UserKey, &as))
	rec := httptest.NewRecorder()
	h.Get(rec, req, httprouter.Params{{Key: "eventId", Value: id.Hex()}})
	return rec
}

func TestInvoiceJSON(t *testing.T) {
	h, ev, client := setup()
	rec := get(h, client, ev.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body view
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invoice", body.Type)
	assert.Equal(t, Number(ev.ID), body.InvoiceNumber)
	require.NotNil(t, body.AssignedManager)
	assert.Equal(t, "Meena", body.AssignedManager.Name)
	assert.InDelta(t, 2500, body.PaidTotal, 0.001)

	rec = get(h, client, ev.ID, "?format=receipt")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "receipt", body.Type)
}

func TestInvoicePDF(t *testing.T) {
	h, ev, client := setup()
	rec := get(h, client, ev.ID, "?format=pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-"+ev.ID.Hex()+".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestInvoiceOwnerOnly(t *testing.T) {
	h, ev, _ := setup()
	stranger := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	assert.Equal(t, http.StatusForbidden, get(h, stranger, ev.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, get(h, stranger, primitive.NewObjectID(), "").Code)
}
