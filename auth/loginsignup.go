package auth

import (
	"errors"
	"net/http"
	"strings"

	"movment/activity"
	"movment/db"
	"movment/lifecycle"
	"movment/middleware"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	Area     string `json:"area"`
}

// Register handles POST /api/auth/register. Self-registered managers start unapproved.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in registerRequest
	if !utils.DecodeJSON(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleManager {
		utils.RespondWithError(w, http.StatusBadRequest, "Role must be user or manager")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cost)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	now := h.now().UTC()
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		Approved:     role != models.RoleManager,
		Phone:        strings.TrimSpace(in.Phone),
		Location: models.UserLocation{
			City: strings.TrimSpace(in.City),
			Area: strings.TrimSpace(in.Area),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	if err := h.users.Insert(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			utils.RespondWithError(w, http.StatusConflict, "Email already registered")
			return
		}
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	h.logger.Info("user registered", zap.String("user", user.ID.Hex()), zap.String("role", role))
	utils.RespondWithJSON(w, http.StatusCreated, toPublic(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login with either e-mail or phone.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in loginRequest
	if !utils.DecodeJSON(w, r, &in) {
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email or phone and password required")
		return
	}
	if in.Email == "" && in.Phone == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email or phone required")
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	var (
		user *models.User
		err  error
	)
	if in.Email != "" {
		user, err = h.users.FindByEmail(ctx, in.Email)
	} else {
		user, err = h.users.FindByPhone(ctx, in.Phone)
	}
	if errors.Is(err, lifecycle.ErrNotFound) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user.Role == models.RoleManager && !user.Approved {
		utils.RespondWithError(w, http.StatusForbidden, middleware.PendingApprovalMessage)
		return
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	h.activity.Record(activity.WithIP(ctx, utils.ClientIP(r)), user.ID, models.ActionLogin, "", nil)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token": token,
		"user":  toPublic(user),
	})
}
