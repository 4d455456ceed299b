package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
	"github.com/erazemk/inventar/internal/users"
)

// AuthHandler handles authentication and current-user endpoints.
type AuthHandler struct {
	Users     *users.Service
	Repo      *store.Repository
	JWTSecret string
	TokenTTL  time.Duration
	Log       *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user.ID, user.Name, user.Role)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	h.Log.Info("user logged in", zap.String("user", user.ID), zap.String("role", user.Role))
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, user)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := activity.ActorFrom(r.Context())
	user, err := h.Users.Get(r.Context(), actor.ID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req users.Profile
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	if err := h.Users.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Logout handles POST /api/auth/logout. The token stops working immediately.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	expires := time.Now().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := h.Repo.RevokeToken(r.Context(), claims.ID, expires); err != nil {
		serviceError(w, r, err)
		return
	}
	if err := h.Users.Logout(r.Context()); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ForgotPassword handles POST /api/auth/forgot-password. It always answers
// 200 so registered emails cannot be discovered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		jsonError(w, http.StatusBadRequest, "email required")
		return
	}

	if err := h.Users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.Log.Error("password reset request failed", zap.Error(err))
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "if the address is registered, a reset link has been sent"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Users.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
