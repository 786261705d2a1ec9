package server

const (
	RouteRoot   = "/"
	RouteHealth = "/healthz"

	RouteCloudFindings  = "/api/findings/cloud"
	RouteSecretFindings = "/api/findings/secrets"
	RouteIaCFindings    = "/api/findings/iac"

	RouteUpdateCloudFinding  = "/api/findings/cloud/{index}"
	RouteUpdateSecretFinding = "/api/findings/secrets/{index}"
	RouteUpdateIaCFinding    = "/api/findings/iac/{index}"

	RouteClearFindings = "/api/findings/clear"

	RouteUploadCheckov  = "/api/upload/checkov"
	RouteUploadGitleaks = "/api/upload/gitleaks"
	RouteUploadTrivy    = "/api/upload/trivy"

	RouteStatsSummary = "/api/stats/summary"
)
