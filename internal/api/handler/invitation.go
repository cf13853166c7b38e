package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marit/provisioner/internal/api/request"
	"github.com/marit/provisioner/internal/api/response"
	"github.com/marit/provisioner/internal/invite"
)

type Invitation struct {
	log *invite.Log
}

func NewInvitation(log *invite.Log) *Invitation {
	return &Invitation{log: log}
}

func (h *Invitation) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateInvitation
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.log.Add(r.Context(), invite.Invitation{
		Email:      req.Email,
		TenantHost: req.TenantHost,
		InvitedBy:  req.InvitedBy,
	})
	if err != nil {
		if errors.Is(err, invite.ErrTooManyPending) {
			response.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Invitation) List(w http.ResponseWriter, r *http.Request) {
	pending, err := h.log.ListPending(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": pending})
}

func (h *Invitation) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.log.Remove(r.Context(), id); err != nil {
		if errors.Is(err, invite.ErrInvitationNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
