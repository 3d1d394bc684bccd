// Package suggestions serves the static booking catalogues: package
// suggestions, staffing guidance, FAQ and survey questions.
package suggestions

import (
	"net/http"
	"strconv"

	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

type Package struct {
	Type      string   `json:"type"`
	Services  []string `json:"services"`
	Label     string   `json:"label"`
	Theme     string   `json:"theme"`
	VenueType string   `json:"venueType"`
}

type Staffing struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type FAQEntry struct {
	Q string `json:"q"`
	A string `json:"a"`
}

type SurveyQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Type     string `json:"type"`
	Min      int    `json:"min,omitempty"`
	Max      int    `json:"max,omitempty"`
}

var Packages = []Package{
	{Type: "birthday", Services: []string{"decoration", "food", "music_dj"}, Label: "Classic Birthday Package", Theme: "Balloons & cake", VenueType: "Indoor/outdoor"},
	{Type: "farewell", Services: []string{"decoration", "food", "photography"}, Label: "Farewell Party Package", Theme: "Memories & send-off", VenueType: "Hall"},
	{Type: "software_launch", Services: []string{"venue_setup", "equipment", "catering"}, Label: "Product Launch Package", Theme: "Professional demo", VenueType: "Conference / auditorium"},
	{Type: "anniversary", Services: []string{"decoration", "photography", "food"}, Label: "Anniversary Celebration", Theme: "Elegant & romantic", VenueType: "Banquet hall"},
	{Type: "corporate", Services: []string{"venue_setup", "equipment", "catering"}, Label: "Corporate Event", Theme: "Business formal", VenueType: "Hotel / conference"},
}

var VenueTypes = []string{"Indoor hall", "Outdoor garden", "Hotel ballroom", "Conference room", "Rooftop", "Community center"}

var FAQ = []FAQEntry{
	{Q: "How do I book an event?", A: "Log in, go to Create event booking, fill in type, date, venue, and optional services. Submit to create a booking."},
	{Q: "Can I cancel or reschedule?", A: "Yes. From My events you can cancel or reschedule events that are still pending or accepted."},
	{Q: "How do I get a receipt?", A: "Open the event in your booking history and use the Download invoice option."},
	{Q: "What payment methods are accepted?", A: "We accept card, UPI, wallets, and net banking. Split payment can be arranged for group events."},
	{Q: "How do I contact support?", A: "Use the Support section to raise a query or complaint. We respond within 24 hours."},
}

var SurveyQuestions = []SurveyQuestion{
	{ID: "overall", Question: "How would you rate your overall experience?", Type: "rating", Min: 1, Max: 5},
	{ID: "would_recommend", Question: "Would you recommend us to a friend?", Type: "rating", Min: 1, Max: 5},
	{ID: "improvement", Question: "What could we improve? (optional)", Type: "text"},
}

// StaffingFor sizes the crew by guest count.
func StaffingFor(guests int) Staffing {
	switch {
	case guests <= 20:
		return Staffing{Min: 1, Max: 2}
	case guests <= 50:
		return Staffing{Min: 2, Max: 4}
	default:
		return Staffing{Min: 3, Max: 6}
	}
}

// EventSuggestions handles GET /api/events/suggestions?guestCount=.
func EventSuggestions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	guests, err := strconv.Atoi(r.URL.Query().Get("guestCount"))
	if err != nil || guests < 1 {
		guests = 10
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"suggestions":       Packages,
		"suggestedStaffing": StaffingFor(guests),
		"venueTypes":        VenueTypes,
	})
}

func GetFAQ(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, FAQ)
}

func GetSurveyQuestions(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, SurveyQuestions)
}
