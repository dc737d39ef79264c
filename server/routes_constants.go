package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Institution selection
	RouteInstitutions = "/"
	RouteMain         = "/main"

	// Consent flow
	RouteAgreements = "/agreements/{institution_id}"
	RouteResults    = "/results"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
