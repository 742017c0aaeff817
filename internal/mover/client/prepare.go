package client

import (
	"github.com/f5devops/xc-ns-mover/internal/mover/spec"
)

// specReadonlyFields are server-managed fields that must be stripped
// before a GET response's spec is resubmitted as a create payload.
var specReadonlyFields = map[string]bool{
	"auto_cert_info":     true,
	"cert_state":         true,
	"dns_info":           true,
	"host_name":          true,
	"internet_vip_info":  true,
	"downstream_tls_certificate_expiration_timestamps": true,
	"state":              true,
	"status":             true,
	"http_loadbalancers": true,
	"tcp_loadbalancers":  true,
	"infos":              true,
}

// CleanMetadata extracts a create-ready metadata block from a GET
// response, retargeting it at targetNamespace.
func CleanMetadata(raw ConfigDocument, targetNamespace string) map[string]any {
	meta := raw.Metadata()
	return map[string]any{
		"name":        stringOr(meta["name"], ""),
		"namespace":   targetNamespace,
		"labels":      mapOr(meta["labels"]),
		"annotations": mapOr(meta["annotations"]),
		"description": stringOr(meta["description"], ""),
		"disable":     boolOr(meta["disable"], false),
	}
}

// CleanSpec strips read-only fields from a GET response's spec.
func CleanSpec(raw ConfigDocument) map[string]any {
	out := make(map[string]any)
	for k, v := range raw.Spec() {
		if !specReadonlyFields[k] {
			out[k] = v
		}
	}
	return out
}

// PrepareForMove turns a full GET response into a (metadata, spec) pair
// ready for CreateConfigObject: metadata retargeted at targetNamespace,
// spec cleaned of read-only fields and with namespace references
// rewritten from srcNamespace to targetNamespace.
func PrepareForMove(raw ConfigDocument, srcNamespace, targetNamespace string) (map[string]any, map[string]any) {
	metadata := CleanMetadata(raw, targetNamespace)
	cleanedSpec := CleanSpec(raw)
	rewritten := spec.RewriteNamespaceRefs(toValueMap(cleanedSpec), srcNamespace, targetNamespace)
	return metadata, rewritten.(map[string]any)
}

func toValueMap(m map[string]any) spec.Value {
	return spec.Value(m)
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func boolOr(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func mapOr(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
