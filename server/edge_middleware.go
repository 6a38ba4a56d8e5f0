package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ledgerly/auth-service/sessioncookie"
	"github.com/rs/zerolog/log"
)

const hstsHeaderValue = "max-age=63072000; includeSubDomains"

// EdgeSecurityMiddleware is the per-request gate in front of every page and
// API route. Steps run in a fixed order: HTTPS enforcement, route
// protection, auth-page bounce, CSRF validation, CSRF issuance, security
// headers. Terminal outcomes are a redirect, a 403, or pass-through.
func (s *Server) EdgeSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isStaticAssetPath(r.URL.Path) {
			next(w, r)
			return
		}

		// 1. HTTPS enforcement (production only).
		if s.config.IsProduction() && getScheme(r) != "https" {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}

		session := s.sessionFromRequest(r)

		// 2. Route protection: unauthenticated access to a protected prefix
		// redirects to login, preserving the intended destination.
		if session == nil && s.isProtectedPath(r.URL.Path) {
			destination := r.URL.Path
			if r.URL.RawQuery != "" {
				destination += "?" + r.URL.RawQuery
			}
			loginURL := s.config.GetLoginPath() + "?redirect=" + url.QueryEscape(destination)
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}

		// 3. Auth-page bounce: signed-in users never see the login form.
		if session != nil && s.isAuthPage(r.URL.Path) {
			destination := r.URL.Query().Get("redirect")
			if !isSameOriginPath(destination) {
				destination = s.config.GetDefaultLandingPath()
			}
			http.Redirect(w, r, destination, http.StatusSeeOther)
			return
		}

		// 4. CSRF enforcement for unsafe methods, before any further
		// processing.
		if !isSafeMethod(r.Method) && !validCsrf(r) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// 5. CSRF issuance on first contact. Intentionally not HttpOnly: the
		// client script must read and echo the value.
		if _, err := r.Cookie(CsrfCookieName); err != nil {
			csrfToken, err := GenerateCsrfToken()
			if err != nil {
				log.Error().Err(err).Msg("csrf token generation failed")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CsrfCookieName,
				Value:    csrfToken,
				Path:     "/",
				MaxAge:   int(s.config.GetCsrfTTL().Seconds()),
				Secure:   s.config.IsProduction(),
				SameSite: http.SameSiteStrictMode,
			})
		}

		// 6. Security headers.
		if s.config.IsProduction() {
			w.Header().Set("Strict-Transport-Security", hstsHeaderValue)
		}

		next(w, r)
	}
}

// sessionFromRequest parses the session cookie; nil means no valid session.
func (s *Server) sessionFromRequest(r *http.Request) *sessioncookie.Payload {
	cookie, err := r.Cookie(sessioncookie.CookieName)
	if err != nil {
		return nil
	}
	return s.cookies.Parse(cookie.Value)
}

func (s *Server) isProtectedPath(path string) bool {
	for _, prefix := range s.config.GetProtectedPrefixes() {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (s *Server) isAuthPage(path string) bool {
	for _, page := range s.config.GetAuthPages() {
		if path == page {
			return true
		}
	}
	return false
}

// isSameOriginPath accepts only absolute paths within this origin, rejecting
// protocol-relative ("//evil.com") and absolute URLs.
func isSameOriginPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//")
}

// isStaticAssetPath matches paths the edge gate skips entirely: static
// assets, the image optimizer and the favicon.
func isStaticAssetPath(path string) bool {
	return strings.HasPrefix(path, "/static/") ||
		strings.HasPrefix(path, "/_next/static/") ||
		strings.HasPrefix(path, "/_next/image") ||
		path == "/favicon.ico"
}
