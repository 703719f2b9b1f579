package server

import "net/http"

func (s *Server) initRoutes() {
	// Credential flows: CSRF-guarded, but unauthenticated
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(s.CsrfMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.CsrfMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteSendVerification, ChainMiddleware(s.SendVerificationHandler(), s.APIMiddleware(s.CsrfMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteVerifyPhone, ChainMiddleware(s.VerifyPhoneHandler(), s.APIMiddleware(s.CsrfMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteSessionBridge, ChainMiddleware(s.BridgeHandler(), s.APIMiddleware(s.CsrfMiddleware)...))

	// Session lifecycle: driven by the refresh cookie, CSRF-guarded
	s.RegisterRouteHandler("POST "+RouteSessionRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware(s.CsrfMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteSessionLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.CsrfMiddleware)...))

	// Session management: requires an authenticated principal
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionListHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteSessionRevoke, ChainMiddleware(s.SessionRevokeHandler(), s.APIMiddleware(s.CsrfMiddleware, s.RequireAuth())...))

	s.RegisterRouteHandler("GET "+RouteCsrf, ChainMiddleware(s.CsrfHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
