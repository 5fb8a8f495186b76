package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"leettrack-sync/internal/domain"
	"leettrack-sync/internal/service"
	"leettrack-sync/pkg/response"

	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validate
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator.New(),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.authService.Register(&req); err != nil {
		if errors.Is(err, service.ErrEmailRegistered) || errors.Is(err, service.ErrUsernameTaken) {
			response.Error(w, http.StatusConflict, err.Error())
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.Created(w, map[string]string{
		"message": "Account created. Log in to start syncing.",
		"role":    string(h.authService.RoleFor(req.Email)),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	loginResp, err := h.authService.Login(&req)
	if err != nil {
		// A single message for bad email and bad password keeps account
		// enumeration off the table.
		response.Unauthorized(w, "Invalid email or password")
		return
	}

	response.Success(w, loginResp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	tokenResp, err := h.authService.RefreshToken(&req)
	if err != nil {
		response.Unauthorized(w, "Invalid or expired refresh token")
		return
	}

	response.Success(w, tokenResp)
}

// Logout is stateless on the server side; tokens expire on their own and
// the agent simply drops its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"message": "Logged out",
	})
}
