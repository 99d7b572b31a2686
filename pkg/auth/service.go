package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrTokenRevoked         = errors.New("token has been revoked")
)

// AuthService defines the interface for authentication operations.
type AuthService interface {
	// ValidateRequest extracts and validates a JWT from the request.
	// It checks for the token in:
	//   1. The session cookie (browser clients)
	//   2. Authorization header with "Bearer" scheme (API clients)
	// Revoked tokens are rejected. Returns the validated claims and the raw
	// token string.
	ValidateRequest(r *http.Request) (*Claims, string, error)
}

type authService struct {
	validator   TokenValidator
	sessions    *SessionStore
	revocations RevocationStore
	logger      *zap.Logger
}

// NewAuthService creates a new AuthService. sessions may be nil for
// header-only deployments.
func NewAuthService(validator TokenValidator, sessions *SessionStore, revocations RevocationStore, logger *zap.Logger) AuthService {
	return &authService{
		validator:   validator,
		sessions:    sessions,
		revocations: revocations,
		logger:      logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	var tokenString string
	var tokenSource string

	if token, ok := s.sessionToken(r); ok {
		tokenString = token
		tokenSource = "cookie"
	} else {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.logger.Debug("No JWT found in request",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method))
			return nil, "", ErrMissingAuthorization
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path))
			return nil, "", ErrInvalidAuthFormat
		}
		tokenString = parts[1]
		tokenSource = "header"
	}

	claims, err := s.validator.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("token_source", tokenSource))
		return nil, "", err
	}

	if claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, "", err
		}
		if revoked {
			s.logger.Debug("Revoked JWT presented",
				zap.String("path", r.URL.Path),
				zap.String("token_source", tokenSource))
			return nil, "", ErrTokenRevoked
		}
	}

	return claims, tokenString, nil
}

func (s *authService) sessionToken(r *http.Request) (string, bool) {
	if s.sessions == nil {
		return "", false
	}
	return s.sessions.Token(r)
}

var _ AuthService = (*authService)(nil)
