package authz

// Permission keys used by the console routes. The identity service issues
// grants in the same camelCase vocabulary, so exact matches cover the common
// path and the alias heuristic picks up provider variants.
const (
	PermClientRead    = "clientRead"
	PermClientCreate  = "clientCreate"
	PermClientEdit    = "clientEdit"
	PermClientDestroy = "clientDestroy"

	PermDispatchRead   = "dispatchRead"
	PermDispatchCreate = "dispatchCreate"
	PermDispatchEdit   = "dispatchEdit"

	PermSiteRead   = "siteRead"
	PermSiteCreate = "siteCreate"
	PermSiteEdit   = "siteEdit"

	PermGuardRead   = "guardRead"
	PermGuardCreate = "guardCreate"

	PermBillingRead    = "billingRead"
	PermBillingCreate  = "billingCreate"
	PermBillingDestroy = "billingDestroy"
	PermBillingExport  = "billingExport"

	PermKPIRead = "kpiRead"
)
