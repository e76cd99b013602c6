package handler

import (
	"errors"
	"net/http"
	"strings"

	"photogram/internal/httputil"
	"photogram/internal/mediauri"
	"photogram/internal/model"
	"photogram/internal/service"
)

type PhotoHandler struct {
	content    *service.ContentService
	engagement *service.EngagementService
	canon      *mediauri.Canonicalizer
}

func NewPhotoHandler(content *service.ContentService, engagement *service.EngagementService, canon *mediauri.Canonicalizer) *PhotoHandler {
	return &PhotoHandler{
		content:    content,
		engagement: engagement,
		canon:      canon,
	}
}

type photoResponse struct {
	*model.Photo
	URL string `json:"url"`
}

// Upload handles POST /photos. A multipart body carries the bytes in field "photo";
// a JSON body {"uri": ...} records a photo whose bytes are already stored.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.addByURI(w, r, ownerID)
		return
	}

	maxFormSize := int64(model.MaxPhotoBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Photo exceeds 10MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		httputil.WriteBadRequest(w, "photo file is required")
		return
	}
	defer file.Close()

	data, contentType, err := service.ReadImage(file, header, model.MaxPhotoBytes)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to read photo")
		return
	}

	photo, err := h.content.UploadPhoto(r.Context(), ownerID, data, contentType)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to upload photo")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, photoResponse{Photo: photo, URL: h.canon.Absolute(photo.URI)})
}

func (h *PhotoHandler) addByURI(w http.ResponseWriter, r *http.Request, ownerID int64) {
	var req model.AddPhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	photo, err := h.content.AddPhoto(r.Context(), ownerID, req.URI)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to add photo")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, photoResponse{Photo: photo, URL: h.canon.Absolute(photo.URI)})
}

// Delete handles DELETE /photos?uri=
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	uri := r.URL.Query().Get("uri")
	if uri == "" {
		httputil.WriteBadRequest(w, "Query parameter 'uri' is required")
		return
	}

	result, err := h.content.RemovePhoto(r.Context(), ownerID, uri)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to delete photo")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Like handles POST /photos/like
func (h *PhotoHandler) Like(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req model.PhotoRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engagement.Like(r.Context(), actorID, req.URI); err != nil {
		httputil.WriteServiceError(w, err, "Failed to like photo")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Photo liked",
	})
}

// Unlike handles POST /photos/unlike
func (h *PhotoHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req model.PhotoRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engagement.Unlike(r.Context(), actorID, req.URI); err != nil {
		httputil.WriteServiceError(w, err, "Failed to unlike photo")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Photo unliked",
	})
}

// Comment handles POST /photos/comments
func (h *PhotoHandler) Comment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req model.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.engagement.Comment(r.Context(), actorID, req.URI, req.Comment)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to add comment")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Details handles GET /photos/details?uri=
func (h *PhotoHandler) Details(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	uri := r.URL.Query().Get("uri")
	if uri == "" {
		httputil.WriteBadRequest(w, "Query parameter 'uri' is required")
		return
	}

	details, err := h.engagement.Details(r.Context(), uri, viewer)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to get photo details")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, details)
}
