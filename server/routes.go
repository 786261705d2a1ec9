package server

import "net/http"

func (s *Server) initRoutes() {
	// Preflight requests never match the method-specific patterns
	// below, so CORS answers them from a catch-all.
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, s.CorsMiddleware))

	// Public routes
	s.RegisterRouteHandler("GET "+RouteRoot, ChainMiddleware(s.RootHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// Findings queries (SPA, bearer token required)
	s.RegisterRouteHandler("GET "+RouteCloudFindings, ChainMiddleware(s.CloudFindingsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteSecretFindings, ChainMiddleware(s.SecretFindingsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteIaCFindings, ChainMiddleware(s.IaCFindingsHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Finding triage updates
	s.RegisterRouteHandler("PUT "+RouteUpdateCloudFinding, ChainMiddleware(s.UpdateCloudFindingHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+RouteUpdateSecretFinding, ChainMiddleware(s.UpdateSecretFindingHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+RouteUpdateIaCFinding, ChainMiddleware(s.UpdateIaCFindingHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteClearFindings, ChainMiddleware(s.ClearFindingsHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Scanner uploads (bearer token or CI upload key)
	s.RegisterRouteHandler("POST "+RouteUploadCheckov, ChainMiddleware(s.UploadCheckovHandler(), s.APIMiddleware(s.RequireUploadAuth())...))
	s.RegisterRouteHandler("POST "+RouteUploadGitleaks, ChainMiddleware(s.UploadGitleaksHandler(), s.APIMiddleware(s.RequireUploadAuth())...))
	s.RegisterRouteHandler("POST "+RouteUploadTrivy, ChainMiddleware(s.UploadTrivyHandler(), s.APIMiddleware(s.RequireUploadAuth())...))

	// Stats
	s.RegisterRouteHandler("GET "+RouteStatsSummary, ChainMiddleware(s.StatsSummaryHandler(), s.APIMiddleware(s.RequireAuth())...))
}
