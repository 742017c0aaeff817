// Package spec walks and rewrites XC API config object trees.
//
// XC config objects are schema-less JSON: a load balancer's spec may
// reference an origin pool, a certificate, or a dozen other resource
// kinds through a {name, namespace} or {name, namespace, tenant} sub
// document buried anywhere in the tree. SpecWalker finds and rewrites
// those reference records without needing a typed model for every
// resource kind.
package spec

import (
	"fmt"
	"strings"
)

// Value is an XC config object (or sub-tree of one), decoded from JSON
// into the usual map[string]any / []any / scalar shape.
type Value = any

// Reference is a {name, namespace, tenant?} record found inside a spec
// tree. Tenant is nil for same-tenant references, which is the common
// case.
type Reference struct {
	Path      string
	Name      string
	Namespace string
	Tenant    *string
}

// pathKeywordOrder maps a keyword found in a JSON path to the XC
// resource type it references. Matching is a simple substring scan over
// the lowercased path; the first entry in this list whose keyword appears
// in the path wins.
var pathKeywordOrder = []struct {
	keyword  string
	resource string
}{
	{"pool", "origin_pools"},
	{"healthcheck", "healthchecks"},
	{"health_check", "healthchecks"},
	{"certificate", "certificates"},
	{"service_polic", "service_policys"},
	{"api_definition", "api_definitions"},
	{"app_firewall", "app_firewalls"},
	{"ip_prefix_set", "ip_prefix_sets"},
	{"rate_limiter", "rate_limiter_policys"},
	{"user_identification", "user_identifications"},
}

// SkipNamespaces holds namespaces that are never move targets: they are
// system-managed or shared across tenants.
var SkipNamespaces = map[string]bool{
	"system": true,
	"shared": true,
}

// GuessResourceType guesses the XC resource type referenced at jsonPath
// from keywords in the path itself. Returns "" if no keyword matches.
func GuessResourceType(jsonPath string) string {
	lower := strings.ToLower(jsonPath)
	for _, e := range pathKeywordOrder {
		if strings.Contains(lower, e.keyword) {
			return e.resource
		}
	}
	return ""
}

// refKeys is the exact key set a dict must be a subset of to be treated
// as a reference record.
var refKeys = map[string]bool{"name": true, "namespace": true, "tenant": true}

func isReferenceRecord(m map[string]Value) bool {
	if _, ok := m["name"]; !ok {
		return false
	}
	if _, ok := m["namespace"]; !ok {
		return false
	}
	for k := range m {
		if !refKeys[k] {
			return false
		}
	}
	return true
}

func asString(v Value) string {
	s, _ := v.(string)
	return s
}

// FindNamespaceRefs recursively finds every reference record in obj whose
// namespace equals srcNamespace, skipping SkipNamespaces. path is the
// dotted/bracketed JSON path used for diagnostics; callers should pass ""
// at the root.
func FindNamespaceRefs(obj Value, srcNamespace, path string) []Reference {
	var refs []Reference
	switch v := obj.(type) {
	case map[string]Value:
		if isReferenceRecord(v) {
			ns := asString(v["namespace"])
			if ns == srcNamespace && !SkipNamespaces[ns] {
				refs = append(refs, Reference{
					Path:      path,
					Name:      asString(v["name"]),
					Namespace: ns,
					Tenant:    tenantPtr(v),
				})
			}
			return refs
		}
		for k, child := range v {
			refs = append(refs, FindNamespaceRefs(child, srcNamespace, path+"."+k)...)
		}
	case []Value:
		for i, child := range v {
			refs = append(refs, FindNamespaceRefs(child, srcNamespace, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}
	return refs
}

func tenantPtr(m map[string]Value) *string {
	t, ok := m["tenant"]
	if !ok {
		return nil
	}
	s := asString(t)
	return &s
}

// RewriteNamespaceRefs returns a deep copy of obj with every reference
// record whose namespace equals srcNamespace repointed to dstNamespace.
func RewriteNamespaceRefs(obj Value, srcNamespace, dstNamespace string) Value {
	switch v := obj.(type) {
	case map[string]Value:
		if isReferenceRecord(v) {
			out := cloneMap(v)
			if asString(out["namespace"]) == srcNamespace {
				out["namespace"] = dstNamespace
			}
			return out
		}
		out := make(map[string]Value, len(v))
		for k, child := range v {
			out[k] = RewriteNamespaceRefs(child, srcNamespace, dstNamespace)
		}
		return out
	case []Value:
		out := make([]Value, len(v))
		for i, child := range v {
			out[i] = RewriteNamespaceRefs(child, srcNamespace, dstNamespace)
		}
		return out
	default:
		return obj
	}
}

// RewriteNameRefs returns a deep copy of obj with every reference record
// matching (oldName, namespace) renamed to newName. Used when a create
// collides on an existing name and the moved object is given a prefixed
// name instead.
func RewriteNameRefs(obj Value, oldName, newName, namespace string) Value {
	switch v := obj.(type) {
	case map[string]Value:
		if isReferenceRecord(v) {
			if asString(v["name"]) == oldName && asString(v["namespace"]) == namespace {
				out := cloneMap(v)
				out["name"] = newName
				return out
			}
			return v
		}
		out := make(map[string]Value, len(v))
		for k, child := range v {
			out[k] = RewriteNameRefs(child, oldName, newName, namespace)
		}
		return out
	case []Value:
		out := make([]Value, len(v))
		for i, child := range v {
			out[i] = RewriteNameRefs(child, oldName, newName, namespace)
		}
		return out
	default:
		return obj
	}
}

// RewriteCertRef returns a deep copy of obj with every reference record
// named oldName rewritten to (newName, newNamespace), regardless of its
// current namespace. Unlike RewriteNameRefs, this also moves the
// namespace — used to substitute a non-portable certificate with a
// matching certificate found elsewhere (typically "shared").
func RewriteCertRef(obj Value, oldName, newName, newNamespace string) Value {
	switch v := obj.(type) {
	case map[string]Value:
		if isReferenceRecord(v) {
			if asString(v["name"]) == oldName {
				out := cloneMap(v)
				out["name"] = newName
				out["namespace"] = newNamespace
				return out
			}
			return v
		}
		out := make(map[string]Value, len(v))
		for k, child := range v {
			out[k] = RewriteCertRef(child, oldName, newName, newNamespace)
		}
		return out
	case []Value:
		out := make([]Value, len(v))
		for i, child := range v {
			out[i] = RewriteCertRef(child, oldName, newName, newNamespace)
		}
		return out
	default:
		return obj
	}
}

func cloneMap(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
