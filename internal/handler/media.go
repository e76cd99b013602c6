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

type MediaHandler struct {
	mediaService *service.MediaService
	canon        *mediauri.Canonicalizer
}

func NewMediaHandler(mediaService *service.MediaService, canon *mediauri.Canonicalizer) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, canon: canon}
}

type profilePictureResponse struct {
	URI *string `json:"uri"`
	URL *string `json:"url"`
}

func (h *MediaHandler) pictureResponse(uri *string) profilePictureResponse {
	if uri == nil {
		return profilePictureResponse{}
	}
	url := h.canon.Absolute(*uri)
	return profilePictureResponse{URI: uri, URL: &url}
}

// UploadProfilePicture handles POST /me/profile-picture (multipart field "image")
func (h *MediaHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxProfilePictureBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 5MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	uri, err := h.mediaService.UploadProfilePicture(r.Context(), accountID, file, header)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to upload profile picture")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.pictureResponse(&uri))
}

// GetProfilePicture handles GET /me/profile-picture
func (h *MediaHandler) GetProfilePicture(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	uri, err := h.mediaService.ProfilePicture(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to get profile picture")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.pictureResponse(uri))
}

// DeleteProfilePicture handles DELETE /me/profile-picture
func (h *MediaHandler) DeleteProfilePicture(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	cleaned, err := h.mediaService.RemoveProfilePicture(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to remove profile picture")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"blobOrphaned": !cleaned})
}
