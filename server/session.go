package server

import (
	"net/http"

	"github.com/ledgerly/auth-service/sessioncookie"
	"github.com/ledgerly/auth-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func snapshotUser(user *users.User) sessioncookie.UserSnapshot {
	return sessioncookie.UserSnapshot{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Roles:       user.Roles,
		AvatarURL:   user.AvatarURL,
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, user *users.User, twoFactorEnrolled bool) {
	payload, err := s.cookies.NewPayload(sessioncookie.PayloadInput{
		Kind: sessioncookie.KindAuthenticated,
		User: snapshotUser(user),
		Metadata: &sessioncookie.Metadata{
			IsTwoFactorEnrolled: twoFactorEnrolled,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("session payload build failed")
		return
	}
	s.writeSessionCookie(w, r, payload)
}

func (s *Server) setDemoSessionCookie(w http.ResponseWriter, r *http.Request) (*sessioncookie.Payload, error) {
	payload, err := s.cookies.NewPayload(sessioncookie.PayloadInput{
		Kind: sessioncookie.KindDemo,
		User: sessioncookie.UserSnapshot{
			ID:          "demo",
			Email:       "demo@ledgerly.app",
			DisplayName: "Demo User",
			Roles:       []string{users.RoleUser},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "[setDemoSessionCookie] payload build")
	}
	s.writeSessionCookie(w, r, payload)
	return payload, nil
}

func (s *Server) writeSessionCookie(w http.ResponseWriter, r *http.Request, payload *sessioncookie.Payload) {
	value, err := s.cookies.Serialize(payload)
	if err != nil {
		log.Error().Err(err).Msg("session payload serialize failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessioncookie.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   s.cookies.MaxAgeSeconds(payload),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.config.IsProduction() && getScheme(r) == "https",
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessioncookie.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.config.IsProduction() && getScheme(r) == "https",
	})
}
