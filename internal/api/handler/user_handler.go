package handler

import (
	"encoding/json"
	"net/http"

	"geoauth/internal/api/middleware"
	"geoauth/internal/app/service"
	"geoauth/internal/common"

	"github.com/go-chi/chi/v5"
)

// UserHandler serves the token-gated account routes. All of them expect
// middleware.Authenticator to have resolved the current user already.
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/user", h.me)
	r.Put("/user/update", h.update)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "token missing")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user.Public())
}

// logout confirms a valid token was presented. Tokens are stateless, so there
// is nothing to invalidate server-side; they lapse at their natural expiry.
func (h *UserHandler) logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.CurrentUser(r.Context()); !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "token missing")
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "logout successful")
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithMessage(w, http.StatusUnauthorized, "token missing")
		return
	}

	var req service.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	resp, err := h.userService.Update(r.Context(), user, req)
	if err != nil {
		common.RespondWithMessage(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
