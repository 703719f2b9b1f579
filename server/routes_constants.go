package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Credential flows
	RouteRegister         = "/auth/register"
	RouteLogin            = "/auth/login"
	RouteSendVerification = "/auth/send-verification"
	RouteVerifyPhone      = "/auth/verify-phone"

	// Auth Routes - Session lifecycle
	RouteSession        = "/auth/session"
	RouteSessionBridge  = "/auth/session/bridge"
	RouteSessionRefresh = "/auth/session/refresh"
	RouteSessionLogout  = "/auth/session/logout"
	RouteSessionRevoke  = "/auth/session/revoke"

	// Auth Routes - CSRF
	RouteCsrf = "/auth/csrf"

	// Operational Routes
	RouteHealthz = "/healthz"
)
