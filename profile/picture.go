package profile

import (
	"errors"
	"net/http"

	"movment/filemgr"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const maxUpload = 10 << 20

var pictureErrors = map[error]string{
	filemgr.ErrInvalidExtension: "Unsupported image type",
	filemgr.ErrInvalidMIME:      "Unsupported image type",
	filemgr.ErrFileTooLarge:     "Image is too large",
	filemgr.ErrNotAnImage:       "File is not an image",
}

// UploadPicture handles POST /api/user/profile/picture (multipart field "picture").
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unable to parse form")
		return
	}
	file, header, err := r.FormFile("picture")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Picture file required")
		return
	}
	defer file.Close()

	saved, err := h.pictures.SaveProfilePicture(file, header)
	if err != nil {
		for known, msg := range pictureErrors {
			if errors.Is(err, known) {
				utils.RespondWithError(w, http.StatusBadRequest, msg)
				return
			}
		}
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	user := utils.UserFromRequest(r)
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	previous := user.ProfilePicture
	updated, err := h.users.UpdateFields(ctx, user.ID, bson.M{"profilePicture": saved.Path, "updatedAt": h.now().UTC()})
	if err != nil {
		h.pictures.Remove(*saved)
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	if old := h.pictures.Pair(previous); old.Path != "" {
		h.pictures.Remove(old)
	}
	h.logger.Debug("profile picture replaced", zap.String("user", user.ID.Hex()), zap.String("path", saved.Path))
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": updated, "picture": saved})
}
