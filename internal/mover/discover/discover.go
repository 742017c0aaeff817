// Package discover implements dependency discovery: given a load
// balancer's spec, find every resource it transitively depends on within
// the same namespace.
package discover

import (
	"context"
	"log/slog"

	"github.com/f5devops/xc-ns-mover/internal/mover/client"
	"github.com/f5devops/xc-ns-mover/internal/mover/spec"
)

// Dependency is one entry in a load balancer's dependency plan: a
// resource kind, name, and namespace, in BFS discovery order.
type Dependency struct {
	Kind      string
	Name      string
	Namespace string
}

// ObjectFetcher is the subset of client.Client the resolver needs. Kept
// as an interface so tests can stub it.
type ObjectFetcher interface {
	GetConfigObject(ctx context.Context, namespace, resourceType, name string) (client.ConfigDocument, error)
}

// Resolver discovers transitive dependency graphs.
type Resolver struct {
	client ObjectFetcher
	logger *slog.Logger
}

// New builds a Resolver over fetcher.
func New(fetcher ObjectFetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: fetcher, logger: logger}
}

type seenKey struct {
	kind string
	name string
}

// Discover walks lbSpec (the load balancer's spec document) and returns
// the deduplicated, BFS-ordered list of everything it depends on within
// srcNamespace. A fetch failure for one dependency does not abort the
// scan — the entry is recorded without sub-dependencies, and a warning
// is logged, matching the original implementation's tolerance for
// partial failure during discovery.
func (r *Resolver) Discover(ctx context.Context, srcNamespace string, lbSpec map[string]any) []Dependency {
	seen := make(map[seenKey]bool)
	var ordered []Dependency

	queue := spec.FindNamespaceRefs(spec.Value(lbSpec), srcNamespace, "")

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		kind := spec.GuessResourceType(ref.Path)
		if kind == "" {
			r.logger.Debug("cannot determine resource type for reference, skipping",
				"path", ref.Path, "namespace", ref.Namespace, "name", ref.Name)
			continue
		}

		key := seenKey{kind: kind, name: ref.Name}
		if seen[key] {
			continue
		}
		seen[key] = true

		obj, err := r.client.GetConfigObject(ctx, ref.Namespace, kind, ref.Name)
		if err != nil {
			r.logger.Warn("cannot fetch dependency for sub-scan",
				"namespace", ref.Namespace, "kind", kind, "name", ref.Name, "error", err)
			ordered = append(ordered, Dependency{Kind: kind, Name: ref.Name, Namespace: ref.Namespace})
			continue
		}

		subRefs := spec.FindNamespaceRefs(spec.Value(obj.Spec()), srcNamespace, "")
		queue = append(queue, subRefs...)

		ordered = append(ordered, Dependency{Kind: kind, Name: ref.Name, Namespace: ref.Namespace})
	}

	return ordered
}
