package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	s.RegisterRouteFunc("POST "+RouteSignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("POST "+RouteForgotPassword, ChainMiddleware(s.PasswordResetRequestHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteResetPassword, ChainMiddleware(s.PasswordResetConfirmHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("POST "+RouteTwoFactor, ChainMiddleware(s.TwoFactorHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteTwoFactorEnroll, ChainMiddleware(s.EnrollTwoFactorHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteTwoFactorConfirm, ChainMiddleware(s.ConfirmTwoFactorHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("POST "+RouteDemoSession, ChainMiddleware(s.DemoSessionHandler(), s.APIMiddleware()...))

	// Everything else flows through the edge security middleware so page
	// requests get route protection, CSRF issuance and transport headers.
	s.RegisterRouteFunc("/", ChainMiddleware(s.PageHandler(), s.APIMiddleware()...))
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// PageHandler is a placeholder for the dashboard frontend, which in
// production is served by a separate application behind the same edge.
func (s *Server) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ledgerly\n"))
	}
}
