package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

// ObjectIDParam parses a route parameter. It writes a 400 and returns false
// when the value is not a valid ObjectID.
func ObjectIDParam(w http.ResponseWriter, ps httprouter.Params, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(ps.ByName(name))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// DecodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// QueryFloat returns the parsed query value, or nil when absent or malformed.
func QueryFloat(r *http.Request, key string) *float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

func ContainsIgnoreCase(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}

// FlexFloat accepts a JSON number or a numeric string. Anything else is treated as absent.
type FlexFloat struct {
	v  float64
	ok bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f.v, f.ok = v, true
	return nil
}

// Ptr returns the value, or nil when the field was absent or not numeric.
func (f FlexFloat) Ptr() *float64 {
	if !f.ok {
		return nil
	}
	v := f.v
	return &v
}

// Float returns the value, or zero when absent.
func (f FlexFloat) Float() float64 {
	return f.v
}
