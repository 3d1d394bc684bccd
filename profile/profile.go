// Package profile lets any signed-in user read and edit their own account.
package profile

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"movment/filemgr"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Users interface {
	UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
}

type Pictures interface {
	SaveProfilePicture(file multipart.File, header *multipart.FileHeader) (*filemgr.Saved, error)
	Pair(picture string) filemgr.Saved
	Remove(saved filemgr.Saved)
}

type ActivityRecorder interface {
	Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID)
}

type Handler struct {
	users    Users
	pictures Pictures
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(users Users, pictures Pictures, activity ActivityRecorder, logger *zap.Logger) *Handler {
	return &Handler{users: users, pictures: pictures, activity: activity, logger: logger, now: time.Now}
}

// GetProfile handles GET /api/user/profile. The gate has already loaded the
// caller from the store, so no second read is needed.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.UserFromRequest(r))
}

type locationPatch struct {
	City        *string `json:"city"`
	Area        *string `json:"area"`
	AddressLine *string `json:"addressLine"`
}

type profilePatch struct {
	Name           *string        `json:"name"`
	Phone          *string        `json:"phone"`
	ProfilePicture *string        `json:"profilePicture"`
	Location       *locationPatch `json:"location"`
	Preferences    *struct {
		PreferredEventTypes []string `json:"preferredEventTypes"`
		PreferredCity       *string  `json:"preferredCity"`
	} `json:"preferences"`
}

// fields turns the patch into a $set document. A blank name is ignored so an
// account never ends up nameless.
func (p profilePatch) fields() bson.M {
	set := bson.M{}
	put := func(key string, v *string) {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) != "" {
		put("name", p.Name)
	}
	put("phone", p.Phone)
	put("profilePicture", p.ProfilePicture)
	if p.Location != nil {
		put("location.city", p.Location.City)
		put("location.area", p.Location.Area)
		put("location.addressLine", p.Location.AddressLine)
	}
	if p.Preferences != nil {
		if p.Preferences.PreferredEventTypes != nil {
			set["preferences.preferredEventTypes"] = utils.TrimAll(p.Preferences.PreferredEventTypes)
		}
		put("preferences.preferredCity", p.Preferences.PreferredCity)
	}
	return set
}

// UpdateProfile handles PATCH /api/user/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var patch profilePatch
	if !utils.DecodeJSON(w, r, &patch) {
		return
	}
	user := utils.UserFromRequest(r)
	set := patch.fields()
	if len(set) == 0 {
		utils.RespondWithJSON(w, http.StatusOK, user)
		return
	}
	set["updatedAt"] = h.now().UTC()

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	updated, err := h.users.UpdateFields(ctx, user.ID, set)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	h.activity.Record(ctx, user.ID, models.ActionProfileUpdate, "user", &user.ID)
	utils.RespondWithJSON(w, http.StatusOK, updated)
}
