package handlers

import (
	"net/http"

	"github.com/wecube/server/internal/service"
	"github.com/wecube/server/internal/transport/http/middleware"
)

type ListingHandler struct {
	listingService *service.ListingService
}

func NewListingHandler(listingService *service.ListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateListingInput
	if !decodeJSON(w, r, &input) {
		return
	}

	listing, err := h.listingService.CreateListing(r.Context(),
		middleware.GetUserID(r.Context()), r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, "create listing", err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (h *ListingHandler) ListByCompetition(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listingService.ListByCompetition(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "list listings", err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listingService.GetListing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "get listing", err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.listingService.DeleteListing(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, "delete listing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListingHandler) Report(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	report, err := h.listingService.ReportListing(r.Context(),
		middleware.GetUserID(r.Context()), r.PathValue("id"), input.Reason)
	if err != nil {
		writeServiceError(w, "report listing", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *ListingHandler) Contact(w http.ResponseWriter, r *http.Request) {
	conv, err := h.listingService.ContactSeller(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "contact seller", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
