package handler

import (
	"net/http"

	"photogram/internal/httputil"
	"photogram/internal/model"
	"photogram/internal/service"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	identity *service.IdentityService
	auth     *service.AuthService
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(identity *service.IdentityService, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		auth:     auth,
	}
}

// Register creates an account and returns it with an access token.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.identity.Register(r.Context(), &req)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to register")
		return
	}

	h.writeAuthResponse(w, http.StatusCreated, account)
}

// Login handles account login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.identity.Login(r.Context(), &req)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to login")
		return
	}

	h.writeAuthResponse(w, http.StatusOK, account)
}

func (h *AuthHandler) writeAuthResponse(w http.ResponseWriter, status int, account *model.Account) {
	token, err := h.auth.IssueToken(account.ID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to generate token")
		return
	}

	httputil.WriteJSON(w, status, model.AuthResponse{
		Token:   token,
		Account: account,
	})
}

// Me returns the currently authenticated account with its photos and relationships
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.identity.FindByID(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, err, "Failed to get account")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, account)
}
