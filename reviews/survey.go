package reviews

import (
	"net/http"
	"strings"

	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

// SubmitSurvey handles POST /api/user/events/:eventId/survey {answers}.
func (h *Handler) SubmitSurvey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "eventId")
	if !ok {
		return
	}
	var body struct {
		Answers []models.SurveyAnswer `json:"answers"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}

	user := utils.GetUserIDFromRequest(r)
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	ev, err := h.completedEvent(ctx, id, user, "Survey only for completed events")
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	const duplicate = "You already submitted the survey for this event"
	if exists, err := h.store.SurveyExists(ctx, ev.ID, user); err != nil || exists {
		h.respondDuplicate(w, err, duplicate)
		return
	}

	answers := make([]models.SurveyAnswer, 0, len(body.Answers))
	for _, a := range body.Answers {
		if a.QuestionID = strings.TrimSpace(a.QuestionID); a.QuestionID != "" {
			answers = append(answers, a)
		}
	}
	if len(answers) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Answers required")
		return
	}

	now := h.now().UTC()
	s := &models.Survey{Event: ev.ID, User: user, Answers: answers, CreatedAt: now, UpdatedAt: now}
	if err := h.store.InsertSurvey(ctx, s); err != nil {
		h.respondDuplicate(w, err, duplicate)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, s)
}
