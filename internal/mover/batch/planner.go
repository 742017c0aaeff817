// Package batch clusters requested load balancer moves into atomic
// batches using union-find over shared dependencies: any two load
// balancers that reference the same dependency, anywhere in their
// transitive graph, must move together.
package batch

import (
	"log/slog"
	"sort"

	"github.com/f5devops/xc-ns-mover/internal/mover/discover"
)

// LoadBalancerRef identifies a requested move.
type LoadBalancerRef struct {
	Namespace string
	Name      string
}

func (r LoadBalancerRef) key() string { return r.Namespace + "/" + r.Name }

// Plan is the per-LB dependency list plus its source namespace, as
// collected during discovery.
type Plan struct {
	LB   LoadBalancerRef
	Deps []discover.Dependency
}

// Batch is a set of load balancers whose dependency sets are union-find
// connected, plus the merged dependency list across all members,
// preserving first-seen BFS order.
type Batch struct {
	LBs  []LoadBalancerRef
	Deps []discover.Dependency
}

type depKey struct {
	kind string
	name string
}

// Cluster groups plans into batches. Two LBs end up in the same batch
// iff they share at least one (kind, name) dependency, directly or
// transitively (transitivity falls out of union-find: if A and B share
// dep X, and B and C share dep Y, all three end up in one set even
// though A and C share nothing directly).
func Cluster(plans []Plan, logger *slog.Logger) []Batch {
	if logger == nil {
		logger = slog.Default()
	}

	uf := NewUnionFind()
	depToLBs := make(map[depKey][]string)
	planByKey := make(map[string]Plan, len(plans))

	for _, p := range plans {
		k := p.LB.key()
		planByKey[k] = p
		uf.Find(k)
		for _, dep := range p.Deps {
			dk := depKey{kind: dep.Kind, name: dep.Name}
			depToLBs[dk] = append(depToLBs[dk], k)
		}
	}

	for _, lbKeys := range depToLBs {
		for i := 1; i < len(lbKeys); i++ {
			uf.Union(lbKeys[0], lbKeys[i])
		}
	}

	grouped := make(map[string][]string)
	for _, p := range plans {
		root := uf.Find(p.LB.key())
		grouped[root] = append(grouped[root], p.LB.key())
	}

	roots := make([]string, 0, len(grouped))
	for root := range grouped {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	batches := make([]Batch, 0, len(roots))
	for _, root := range roots {
		// grouped[root] was built by appending in plans' original
		// encounter order (CSV/discovery order), which is exactly what
		// must drive merged Deps' first-seen order below — do not
		// re-sort it alphabetically.
		members := grouped[root]

		b := Batch{}
		seenDep := make(map[depKey]bool)
		for _, m := range members {
			p := planByKey[m]
			b.LBs = append(b.LBs, p.LB)
			for _, dep := range p.Deps {
				dk := depKey{kind: dep.Kind, name: dep.Name}
				if !seenDep[dk] {
					seenDep[dk] = true
					b.Deps = append(b.Deps, dep)
				}
			}
		}
		batches = append(batches, b)
	}

	multi := 0
	for _, b := range batches {
		if len(b.LBs) > 1 {
			multi++
		}
	}
	logger.Info("clustered load balancers into batches",
		"lb_count", len(plans), "batch_count", len(batches), "multi_lb_batches", multi)

	return batches
}

// DepToLBs reports, for every dependency key, which LB keys (namespace/name)
// reference it. The move command uses its keys to enumerate the dependency
// names checked for conflicts in the target namespace.
func DepToLBs(plans []Plan) map[string][]string {
	out := make(map[string][]string)
	for _, p := range plans {
		for _, dep := range p.Deps {
			k := dep.Kind + "/" + dep.Name
			out[k] = append(out[k], p.LB.key())
		}
	}
	return out
}
