package server

import (
	"net/http"

	"github.com/ledgerly/auth-service/sessioncookie"
)

// EnrollTwoFactorHandler provisions a TOTP secret and backup codes for the
// signed-in user. The secret is not active until confirmed.
func (s *Server) EnrollTwoFactorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.sessionFromRequest(r)
		if session == nil || session.Kind != sessioncookie.KindAuthenticated {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		enrollment, err := s.auth.EnrollTwoFactor(r.Context(), session.User.ID)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enrollment)
	}
}

func (s *Server) ConfirmTwoFactorHandler() http.HandlerFunc {
	type confirmRequest struct {
		Code string `json:"code"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.sessionFromRequest(r)
		if session == nil || session.Kind != sessioncookie.KindAuthenticated {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		var input confirmRequest
		if !decodeBody(w, r, &input) {
			return
		}

		if err := s.auth.ConfirmTwoFactorEnrollment(r.Context(), session.User.ID, input.Code); err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
