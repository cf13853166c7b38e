package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marit/provisioner/internal/api/request"
	"github.com/marit/provisioner/internal/api/response"
	"github.com/marit/provisioner/internal/provision"
)

type Site struct {
	svc *provision.Service
}

func NewSite(svc *provision.Service) *Site {
	return &Site{svc: svc}
}

// Create accepts a provisioning request and returns the tenant host. The
// site itself is built asynchronously; clients poll the status endpoint.
func (h *Site) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSite
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	host, err := h.svc.CreateSite(r.Context(), provision.CreateSiteRequest{
		CompanyName:      req.CompanyName,
		RequestedAlias:   req.Alias,
		OwnerUserID:      req.OwnerUserID,
		OwnerEmail:       req.OwnerEmail,
		Currency:         req.Currency,
		Domain:           req.Domain,
		Country:          req.Country,
		TenantExternalID: req.TenantExternalID,
		StorageKind:      req.StorageKind,
	})
	if err != nil {
		if errors.Is(err, provision.ErrInvalidName) {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"tenant_host": host})
}

func (h *Site) Status(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")

	status, err := h.svc.GetStatus(r.Context(), host)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, status)
}

func (h *Site) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.svc.DeleteSite(r.Context(), name); err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
