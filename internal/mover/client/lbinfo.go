package client

import "strings"

// TLSMode classifies how a load balancer terminates TLS, inferred from
// which top-level spec key is present.
func TLSMode(lb ConfigDocument) string {
	spec := lb.Spec()
	switch {
	case has(spec, "https_auto_cert"):
		return "Let's Encrypt"
	case has(spec, "https"):
		return "Manual TLS"
	case has(spec, "http"):
		return "No TLS"
	default:
		return "Unknown"
	}
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// CNAME extracts the host CNAME from spec.dns_info[0].dns_name, falling
// back to spec.host_name.
func CNAME(lb ConfigDocument) string {
	spec := lb.Spec()
	if dnsInfo, ok := spec["dns_info"].([]any); ok && len(dnsInfo) > 0 {
		if first, ok := dnsInfo[0].(map[string]any); ok {
			if name, _ := first["dns_name"].(string); strings.TrimSpace(name) != "" {
				return strings.TrimSpace(name)
			}
		}
	}
	hostName, _ := spec["host_name"].(string)
	return hostName
}

// ACMECNAME extracts the ACME challenge CNAME from
// spec.auto_cert_info.dns_records (the entry with type=CNAME). Returns ""
// if not yet provisioned.
func ACMECNAME(lb ConfigDocument) string {
	spec := lb.Spec()
	autoCert, _ := spec["auto_cert_info"].(map[string]any)
	records, _ := autoCert["dns_records"].([]any)
	for _, raw := range records {
		rec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		recType, _ := rec["type"].(string)
		if strings.ToUpper(recType) != "CNAME" {
			continue
		}
		if val, _ := rec["value"].(string); strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// ExtractReferringObjects returns the raw referring_objects list attached
// to a GET response, if any.
func ExtractReferringObjects(doc ConfigDocument) []map[string]any {
	raw, _ := doc["referring_objects"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// reservedNamespaces mirrors spec.SkipNamespaces for referrer filtering.
var reservedNamespaces = map[string]bool{"system": true, "shared": true}

// FilterExternalReferrers returns the subset of referringObjects that are
// not part of moveSet (a set of "namespace/name" LB identities) and not
// from a reserved namespace.
func FilterExternalReferrers(referringObjects []map[string]any, moveSet map[string]bool) []map[string]any {
	var external []map[string]any
	for _, ref := range referringObjects {
		ns, _ := ref["namespace"].(string)
		name, _ := ref["name"].(string)

		if reservedNamespaces[ns] {
			continue
		}
		if !moveSet[ns+"/"+name] {
			external = append(external, ref)
		}
	}
	return external
}
