package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/gatekit/pkg/credential"
	"github.com/dmitrymomot/gatekit/pkg/principal"
)

type loginRequest struct {
	PrincipalID string `json:"principal_id"`
	Secret      string `json:"secret"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in_seconds,omitempty"`
}

// login exchanges a principal ID and secret for a signed credential token.
// All authentication failures collapse into one 401 so the endpoint leaks
// nothing about which identities exist.
func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.PrincipalID == "" || req.Secret == "" {
		s.respondError(w, http.StatusBadRequest, "malformed request")
		return
	}

	ident, err := s.identities.Identity(r.Context(), req.PrincipalID)
	if err != nil {
		if errors.Is(err, principal.ErrIdentityNotFound) {
			s.respondError(w, http.StatusUnauthorized, "invalid_credential")
			return
		}
		s.log.ErrorContext(r.Context(), "identity lookup failed", slog.Any("error", err))
		s.respondError(w, http.StatusServiceUnavailable, "service_unavailable")
		return
	}

	if ident.Deactivated ||
		bcrypt.CompareHashAndPassword(ident.SecretHash, []byte(req.Secret)) != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid_credential")
		return
	}

	token, err := credential.Issue(ident.ID, s.cfg.TokenSecret, s.cfg.TokenTTL)
	if err != nil {
		s.log.ErrorContext(r.Context(), "credential issue failed", slog.Any("error", err))
		s.respondError(w, http.StatusServiceUnavailable, "service_unavailable")
		return
	}

	resp := loginResponse{Token: token}
	if s.cfg.TokenTTL > 0 {
		resp.ExpiresIn = int64(s.cfg.TokenTTL.Seconds())
	}
	s.respond(w, http.StatusOK, resp)
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
