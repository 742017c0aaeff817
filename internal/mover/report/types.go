// Package report renders the HTML move report: per-batch dependency
// graphs (inline SVG), per-LB and per-dependency result tables, DNS
// CNAME change callouts, and manual certificate-rework guidance.
package report

// DepKey identifies a dependent object by resource type and name, the
// same composite key used throughout discover/batch/preflight.
type DepKey struct {
	Kind string
	Name string
}

// BatchGraphData carries everything the SVG renderer needs to draw one
// batch's dependency graph.
type BatchGraphData struct {
	BatchIndex int
	LBNames    []string

	// LBToDeps maps an LB name to the dependency keys it references
	// directly.
	LBToDeps map[string][]DepKey

	// SharedDeps holds dependency keys referenced by more than one LB
	// in this batch.
	SharedDeps map[DepKey]bool

	// DepChildren maps a dependency key to the sub-dependency keys it
	// references (e.g. an origin pool's health check).
	DepChildren map[DepKey][]DepKey

	// ExternalDeps holds dependency keys also referenced by objects
	// outside the move set.
	ExternalDeps map[DepKey]bool
}

// friendlyTypeNames mirrors exec.FriendlyTypeNames entry for entry; report
// keeps its own copy of the table.
var friendlyTypeNames = map[string]string{
	"origin_pools":         "Origin Pool",
	"healthchecks":         "Health Check",
	"certificates":         "TLS Certificate",
	"service_policys":      "Service Policy",
	"api_definitions":      "API Definition",
	"app_firewalls":        "App Firewall",
	"ip_prefix_sets":       "IP Prefix Set",
	"rate_limiter_policys": "Rate Limiter",
	"user_identifications": "User Identification",
}

func friendlyType(kind string) string {
	if n, ok := friendlyTypeNames[kind]; ok {
		return n
	}
	return kind
}
