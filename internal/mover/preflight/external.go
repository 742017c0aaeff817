// Package preflight runs the checks that must pass before a batch of load
// balancers and their dependencies are moved: external reference scanning,
// name-conflict resolution, non-portable certificate detection and
// matching, and managed-DNS zone detection.
package preflight

import (
	"context"
	"log/slog"
	"sort"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/client"
	"github.com/f5devops/xc-ns-mover/internal/mover/spec"
)

// friendlyTypeNames maps resource type plural to a human label. Nothing in
// this package calls friendlyType at present.
var friendlyTypeNames = map[string]string{
	"origin_pools":           "Origin Pool",
	"healthchecks":           "Health Check",
	"certificates":           "Certificate",
	"service_policys":        "Service Policy",
	"api_definitions":        "API Definition",
	"app_firewalls":          "App Firewall",
	"ip_prefix_sets":         "IP Prefix Set",
	"rate_limiter_policys":   "Rate Limiter Policy",
	"user_identifications":   "User Identification",
}

func friendlyType(kind string) string {
	if f, ok := friendlyTypeNames[kind]; ok {
		return f
	}
	return kind
}

// ExternalRef identifies an LB, outside the set being moved, that
// references one of the dependencies being moved.
type ExternalRef struct {
	LBName      string
	LBNamespace string
}

// ObjectLister is the subset of client.Client needed to scan for external
// references: enumerate LBs in a namespace and fetch their specs.
type ObjectLister interface {
	ListAllLoadBalancers(ctx context.Context, namespace string) ([]client.LoadBalancer, error)
	GetConfigObject(ctx context.Context, namespace, resourceType, name string) (client.ConfigDocument, error)
}

// depKey identifies a dependency by resource type and name, independent
// of namespace (matching the original implementation's key shape).
type depKey struct {
	kind string
	name string
}

// ScanExternalReferences finds every LB outside toMove that references a
// dependency belonging to an LB inside toMove. The XC API's
// referring_objects field is unreliable, so every other LB in each source
// namespace is actively re-fetched and scanned.
func ScanExternalReferences(ctx context.Context, c ObjectLister, logger *slog.Logger, toMove []batch.LoadBalancerRef, plans []batch.Plan) map[string][]ExternalRef {
	if logger == nil {
		logger = slog.Default()
	}

	allDepKeys := make(map[depKey]bool)
	for _, p := range plans {
		for _, dep := range p.Deps {
			allDepKeys[depKey{dep.Kind, dep.Name}] = true
		}
	}

	result := make(map[string][]ExternalRef)
	if len(allDepKeys) == 0 {
		return result
	}

	moveNames := make(map[string]bool, len(toMove))
	nsSet := make(map[string]bool)
	for _, lb := range toMove {
		moveNames[lb.Name] = true
		nsSet[lb.Namespace] = true
	}
	namespaces := make([]string, 0, len(nsSet))
	for ns := range nsSet {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	logger.Info("scanning for external references to dependencies")
	for _, ns := range namespaces {
		lbs, err := c.ListAllLoadBalancers(ctx, ns)
		if err != nil {
			logger.Warn("could not list load balancers in namespace", "namespace", ns, "error", err)
			continue
		}

		for _, lb := range lbs {
			if moveNames[lb.Name] {
				continue
			}
			resourceType := lb.Kind + "s"
			doc, err := c.GetConfigObject(ctx, ns, resourceType, lb.Name)
			if err != nil {
				logger.Debug("cannot fetch object for external ref scan",
					"resource_type", resourceType, "name", lb.Name, "namespace", ns, "error", err)
				continue
			}

			refs := spec.FindNamespaceRefs(spec.Value(doc.Spec()), ns, "")
			for _, ref := range refs {
				rt := spec.GuessResourceType(ref.Path)
				if rt == "" {
					continue
				}
				dk := depKey{rt, ref.Name}
				if !allDepKeys[dk] {
					continue
				}
				key := rt + "/" + ref.Name
				result[key] = append(result[key], ExternalRef{LBName: lb.Name, LBNamespace: ns})
			}
		}
	}

	if len(result) > 0 {
		logger.Info("found dependencies with external references", "count", len(result))
		for key, refs := range result {
			logger.Info("external reference", "dependency", key, "referrer_count", len(refs))
		}
	} else {
		logger.Info("no external references found")
	}

	return result
}
