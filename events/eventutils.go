package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"movment/models"
	"movment/utils"
)

// flexInt accepts a JSON number or a numeric string; fractions are truncated.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = flexInt(f)
	}
	return nil
}

// serviceEntry accepts either "decoration" or {"service": "decoration", ...}.
type serviceEntry models.ServiceRequest

func (s *serviceEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*s = serviceEntry{Service: name}
		return nil
	}
	var sr models.ServiceRequest
	if err := json.Unmarshal(b, &sr); err != nil {
		return err
	}
	*s = serviceEntry(sr)
	return nil
}

var errBadTime = errors.New("unrecognised time")

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 and the browser's datetime-local format. Times
// without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errBadTime
}

// Nearby keeps events whose coordinates lie within radiusKm of the origin,
// nearest first, with DistanceKm set. Events without coordinates are dropped.
func Nearby(evs []models.Event, lat, lng, radiusKm float64) []models.Event {
	out := make([]models.Event, 0, len(evs))
	for _, ev := range evs {
		c := ev.Location.Coordinates
		if c == nil {
			continue
		}
		d := utils.HaversineKm(lat, lng, c.Lat, c.Lng)
		if d > radiusKm {
			continue
		}
		ev.DistanceKm = &d
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	return out
}
