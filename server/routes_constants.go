package server

const (
	RouteHealth = "/healthz"

	RouteSignup           = "/api/auth/signup"
	RouteLogin            = "/api/auth/login"
	RouteLogout           = "/api/auth/logout"
	RouteRefresh          = "/api/auth/refresh"
	RouteForgotPassword   = "/api/auth/forgot-password"
	RouteResetPassword    = "/api/auth/reset-password"
	RouteVerifyEmail      = "/api/auth/verify-email"
	RouteTwoFactor        = "/api/auth/two-factor"
	RouteTwoFactorEnroll  = "/api/auth/two-factor/enroll"
	RouteTwoFactorConfirm = "/api/auth/two-factor/confirm"
	RouteDemoSession      = "/api/auth/demo-session"
)
