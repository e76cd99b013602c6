package handler

import (
	"net/http"

	"photogram/internal/httputil"
	"photogram/internal/service"
)

type AccountHandler struct {
	identity *service.IdentityService
	graph    *service.GraphService
	content  *service.ContentService
}

func NewAccountHandler(identity *service.IdentityService, graph *service.GraphService, content *service.ContentService) *AccountHandler {
	return &AccountHandler{
		identity: identity,
		graph:    graph,
		content:  content,
	}
}

// GetProfile handles GET /users/{id}
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r)
	if !ok {
		return
	}

	account, err := h.identity.FindByID(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to get account")
		return
	}

	// Contact details stay private to the owner.
	if viewer, _ := viewerID(r); viewer != account.ID {
		account.Email = ""
	}

	httputil.WriteJSON(w, http.StatusOK, account)
}

// Search handles GET /users/search?q=
func (h *AccountHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.WriteBadRequest(w, "Query parameter 'q' is required")
		return
	}

	accounts, err := h.identity.FindByQuery(r.Context(), query)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to search accounts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, accounts)
}

// Counts handles GET /users/{id}/counts
func (h *AccountHandler) Counts(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r)
	if !ok {
		return
	}

	counts, err := h.graph.Counts(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to count relationships")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, counts)
}

// Photos handles GET /users/{id}/photos
func (h *AccountHandler) Photos(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r)
	if !ok {
		return
	}

	photos, err := h.content.ListPhotos(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to list photos")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, photos)
}
