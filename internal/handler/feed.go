package handler

import (
	"net/http"

	"photogram/internal/httputil"
	"photogram/internal/service"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns photos of every followed account, newest first.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	feed, err := h.feedService.Feed(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}
