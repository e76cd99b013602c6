package handler

import (
	"net/http"

	"photogram/internal/httputil"
	"photogram/internal/service"
)

type FollowHandler struct {
	graph *service.GraphService
}

func NewFollowHandler(graph *service.GraphService) *FollowHandler {
	return &FollowHandler{
		graph: graph,
	}
}

// Follow handles POST /users/{id}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	targetID, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.graph.Follow(r.Context(), actorID, targetID); err != nil {
		httputil.WriteServiceError(w, err, "Failed to follow account")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully followed account",
	})
}

// Unfollow handles DELETE /users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	targetID, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.graph.Unfollow(r.Context(), actorID, targetID); err != nil {
		httputil.WriteServiceError(w, err, "Failed to unfollow account")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully unfollowed account",
	})
}

// GetFollowers handles GET /users/{id}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r)
	if !ok {
		return
	}

	followers, err := h.graph.Followers(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to get followers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, followers)
}

// GetFollowing handles GET /users/{id}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r)
	if !ok {
		return
	}

	following, err := h.graph.Following(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to get following")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, following)
}
