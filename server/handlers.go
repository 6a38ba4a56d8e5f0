package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/ledgerly/auth-service/auth"
	"github.com/ledgerly/auth-service/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAuthError maps the auth error taxonomy onto HTTP statuses. Unexpected
// failures log full context server-side and leak nothing to the client.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailInUse):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrTermsNotAccepted),
		errors.Is(err, auth.ErrWeakPassword):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrAccountSuspended):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidChallenge),
		errors.Is(err, auth.ErrInvalidTwoFactorCode):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("auth operation failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

// clientContext derives the caller's network context for token records.
func clientContext(r *http.Request) token.ClientContext {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.SplitN(ip, ",", 2)[0])
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return token.ClientContext{
		IPAddress: ip,
		UserAgent: r.Header.Get("User-Agent"),
	}
}

func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input auth.SignupInput
		if !decodeBody(w, r, &input) {
			return
		}

		result, err := s.auth.Signup(r.Context(), input, clientContext(r))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		s.setSessionCookie(w, r, result.User, result.User.TwoFactorEnrolled)
		writeJSON(w, http.StatusCreated, result)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input auth.LoginInput
		if !decodeBody(w, r, &input) {
			return
		}

		result, err := s.auth.Login(r.Context(), input, clientContext(r))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		if result.Status == auth.StatusOK {
			s.setSessionCookie(w, r, result.User, result.User.TwoFactorEnrolled)
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	type refreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input refreshRequest
		if !decodeBody(w, r, &input) {
			return
		}

		pair, err := s.auth.RefreshSession(r.Context(), input.RefreshToken, clientContext(r))
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	type logoutRequest struct {
		RefreshToken string `json:"refreshToken,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input logoutRequest
		_ = json.NewDecoder(r.Body).Decode(&input) // body is optional

		if input.RefreshToken != "" {
			if err := s.auth.Logout(r.Context(), input.RefreshToken); err != nil {
				writeAuthError(w, err)
				return
			}
		}

		s.clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) PasswordResetRequestHandler() http.HandlerFunc {
	type resetRequest struct {
		Email string `json:"email"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input resetRequest
		if !decodeBody(w, r, &input) {
			return
		}

		if err := s.auth.RequestPasswordReset(r.Context(), input.Email, clientContext(r)); err != nil {
			writeAuthError(w, err)
			return
		}
		// Success-shaped whether or not the address exists.
		writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
	}
}

func (s *Server) PasswordResetConfirmHandler() http.HandlerFunc {
	type confirmRequest struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input confirmRequest
		if !decodeBody(w, r, &input) {
			return
		}

		if err := s.auth.ResetPassword(r.Context(), input.Token, input.NewPassword, clientContext(r)); err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	type verifyRequest struct {
		Token string `json:"token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input verifyRequest
		if !decodeBody(w, r, &input) {
			return
		}

		user, err := s.auth.VerifyEmail(r.Context(), input.Token, clientContext(r))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	}
}

func (s *Server) TwoFactorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var submission auth.TwoFactorSubmission
		if !decodeBody(w, r, &submission) {
			return
		}

		result, err := s.auth.CompleteTwoFactor(r.Context(), submission, clientContext(r))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		s.setSessionCookie(w, r, result.User, result.User.TwoFactorEnrolled)
		writeJSON(w, http.StatusOK, result)
	}
}

// DemoSessionHandler starts a read-only demo session backed only by the
// session cookie: no user record, no tokens.
func (s *Server) DemoSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := s.setDemoSessionCookie(w, r)
		if err != nil {
			log.Error().Err(err).Msg("demo session issuance failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}
