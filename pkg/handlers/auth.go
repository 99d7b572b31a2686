package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// SignupRequest is the request body for POST /api/auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SigninRequest is the request body for POST /api/auth/signin.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned after a successful signup or signin. The token
// is also set in the session cookie; API clients may send it as a Bearer
// token instead.
type SessionResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthHandler handles account registration and session endpoints.
type AuthHandler struct {
	accounts    services.AccountService
	issuer      *auth.TokenIssuer
	sessions    *auth.SessionStore
	revocations auth.RevocationStore
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	accounts services.AccountService,
	issuer *auth.TokenIssuer,
	sessions *auth.SessionStore,
	revocations auth.RevocationStore,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:    accounts,
		issuer:      issuer,
		sessions:    sessions,
		revocations: revocations,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/auth/signup", scope(h.Signup))
	mux.HandleFunc("POST /api/auth/signin", scope(h.Signin))
	mux.HandleFunc("POST /api/auth/signout", authMiddleware.RequireAuth(h.Signout))
}

// Signup handles POST /api/auth/signup.
// Creates the account with its default workspace and starts a session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	for _, fe := range []*fieldError{
		validateUserName(req.Name),
		validateEmail(req.Email),
		validatePassword(req.Password),
	} {
		if fe != nil {
			writeBadRequest(w, fe.code, fe.message, h.logger)
			return
		}
	}

	user, err := h.accounts.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	h.startSession(w, r, user, http.StatusCreated)
}

// Signin handles POST /api/auth/signin.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "missing_credentials", "Email and password are required", h.logger)
		return
	}

	user, err := h.accounts.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, claims, err := h.issuer.Issue(user)
	if err != nil {
		h.logger.Error("Failed to issue session token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", genericErrorMessage); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if h.sessions != nil {
		if err := h.sessions.SetToken(w, r, token); err != nil {
			// The bearer token in the body still works.
			h.logger.Warn("Failed to set session cookie", zap.Error(err))
		}
	}

	writeData(w, status, SessionResponse{
		User:      user,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, h.logger)
}

// Signout handles POST /api/auth/signout.
// Revokes the presented token until it expires and clears the session cookie.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if ok && claims.ID != "" && claims.ExpiresAt != nil {
		if err := h.revocations.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("Failed to revoke token",
				zap.String("user_id", claims.Subject),
				zap.Error(err))
			WriteServiceError(w, err, h.logger)
			return
		}
	}

	if h.sessions != nil {
		if err := h.sessions.Clear(w, r); err != nil {
			h.logger.Warn("Failed to clear session cookie", zap.Error(err))
		}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Signed out"}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
