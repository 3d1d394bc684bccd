package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"movment/lifecycle"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func TestRespondWithErrMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{&lifecycle.Error{Kind: lifecycle.ErrValidation, Msg: "Missing required fields"}, http.StatusBadRequest, "Missing required fields"},
		{&lifecycle.Error{Kind: lifecycle.ErrForbidden, Msg: "Not your event"}, http.StatusForbidden, "Not your event"},
		{&lifecycle.Error{Kind: lifecycle.ErrNotFound, Msg: "Event not found"}, http.StatusNotFound, "Event not found"},
		{errors.New("boom"), http.StatusInternalServerError, "Server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondWithErr(rec, zap.NewNop(), tc.err)
		assert.Equal(t, tc.code, rec.Code)
		assert.Equal(t, tc.msg, decodeMessage(t, rec))
	}
}

func TestObjectIDParam(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ObjectIDParam(rec, httprouter.Params{{Key: "id", Value: "nope"}}, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	id, ok := ObjectIDParam(rec, httprouter.Params{{Key: "id", Value: "64b7f1f1f1f1f1f1f1f1f1f1"}}, "id")
	assert.True(t, ok)
	assert.Equal(t, "64b7f1f1f1f1f1f1f1f1f1f1", id.Hex())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct{ Status string }

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"completed"}`))
	assert.True(t, DecodeJSON(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "completed", dst.Status)

	rec := httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.False(t, DecodeJSON(rec, r, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrimAll(t *testing.T) {
	assert.Equal(t, []string{"Asha", "Ravi"}, TrimAll([]string{" Asha ", "", "  ", "Ravi"}))
}

func TestFlexFloat(t *testing.T) {
	var body struct {
		Amount  FlexFloat `json:"amount"`
		Quoted  FlexFloat `json:"quoted"`
		Garbage FlexFloat `json:"garbage"`
		Missing FlexFloat `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.5,"quoted":"40","garbage":"abc"}`), &body))

	require.NotNil(t, body.Amount.Ptr())
	assert.Equal(t, 12.5, *body.Amount.Ptr())
	assert.Equal(t, 40.0, body.Quoted.Float())
	assert.Nil(t, body.Garbage.Ptr())
	assert.Nil(t, body.Missing.Ptr())
	assert.Zero(t, body.Missing.Float())
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(13.08, 80.27, 13.08, 80.27), 1e-9)
	// Chennai to Bengaluru is roughly 290 km as the crow flies.
	assert.InDelta(t, 290, HaversineKm(13.0827, 80.2707, 12.9716, 77.5946), 10)
}
