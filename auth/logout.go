package auth

import (
	"net/http"
	"strings"

	"movment/activity"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Logout handles POST /api/auth/logout. It must run behind the gate, so the
// bearer token has already been validated.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims, err := h.tokens.ParseToken(raw)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	if h.revoker != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := h.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Sub(h.now())); err != nil {
			h.logger.Error("revoke token", zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to invalidate session")
			return
		}
	}

	h.activity.Record(activity.WithIP(ctx, utils.ClientIP(r)), utils.GetUserIDFromRequest(r), models.ActionLogout, "", nil)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Logged out successfully"})
}
