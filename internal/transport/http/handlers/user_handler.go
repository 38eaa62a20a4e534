package handlers

import (
	"net/http"

	"github.com/wecube/server/internal/service"
	"github.com/wecube/server/internal/transport/http/middleware"
)

type UserHandler struct {
	userService  *service.UserService
	blockService *service.BlockService
}

func NewUserHandler(userService *service.UserService, blockService *service.BlockService) *UserHandler {
	return &UserHandler{userService: userService, blockService: blockService}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetMe(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, "get me", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), input)
	if err != nil {
		writeServiceError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteAccount(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	if err := h.userService.SetPushToken(r.Context(), middleware.GetUserID(r.Context()), input.Token); err != nil {
		writeServiceError(w, "set push token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) BlockStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.blockService.Status(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "block status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	if err := h.blockService.Block(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, "block user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.blockService.Unblock(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, "unblock user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
