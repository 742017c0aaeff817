// Package rollback undoes a partially completed batch move: anything
// created in the target namespace is deleted, and anything deleted from
// the source namespace is re-created from its backed-up config.
package rollback

import (
	"context"
	"log/slog"

	"github.com/f5devops/xc-ns-mover/internal/mover/client"
)

// APIClient is the subset of client.Client rollback needs.
type APIClient interface {
	DeleteHTTPLoadBalancer(ctx context.Context, namespace, name string) error
	DeleteConfigObject(ctx context.Context, namespace, resourceType, name string) error
	CreateConfigObject(ctx context.Context, namespace, resourceType string, metadata, spec map[string]any) (client.ConfigDocument, error)
	CreateHTTPLoadBalancer(ctx context.Context, namespace string, metadata, spec map[string]any) (client.ConfigDocument, error)
	GetHTTPLoadBalancer(ctx context.Context, namespace, name string) (client.ConfigDocument, error)
}

// DeletedLB is a load balancer already removed from its source namespace,
// backed up so it can be re-created.
type DeletedLB struct {
	Name      string
	Namespace string
	Config    client.ConfigDocument
}

// DeletedDep is a dependency already removed from its source namespace.
type DeletedDep struct {
	Kind      string
	Name      string
	Namespace string
	Config    client.ConfigDocument
}

// DepIdentity names a dependency created in the target namespace, using
// its possibly-renamed identity.
type DepIdentity struct {
	Kind string
	Name string
}

// Input bundles everything needed to roll back one batch.
type Input struct {
	TargetNamespace string
	DeletedLBs      []DeletedLB
	DeletedDeps     []DeletedDep
	CreatedLBs      []string
	CreatedDeps     []DepIdentity
}

// RestoredLB is what was recovered about an LB re-created in the source
// namespace, for report purposes.
type RestoredLB struct {
	CNAME     string
	ACMECNAME string
}

// Outcome records what rollback actually restored, keyed by
// "namespace/name" for LBs and "kind/name" for deps. FailedLBs/FailedDeps
// carry the original re-create error for any object that could not be
// restored in source, so the caller can preserve it in the object's
// result instead of losing it behind a generic abort message.
type Outcome struct {
	RestoredLBs  map[string]RestoredLB
	RestoredDeps map[string]struct{}
	FailedLBs    map[string]error
	FailedDeps   map[string]error
}

// Run executes a rollback in the original implementation's order:
//  1. delete LBs created in target (reverse creation order)
//  2. delete deps created in target (reverse creation order)
//  3. re-create deps in source (reverse delete order = bottom-up)
//  4. re-create LBs in source (last)
func Run(ctx context.Context, c APIClient, logger *slog.Logger, in Input) Outcome {
	if logger == nil {
		logger = slog.Default()
	}
	out := Outcome{
		RestoredLBs:  map[string]RestoredLB{},
		RestoredDeps: map[string]struct{}{},
		FailedLBs:    map[string]error{},
		FailedDeps:   map[string]error{},
	}

	logger.Info("rollback: cleaning up target namespace")

	for i := len(in.CreatedLBs) - 1; i >= 0; i-- {
		name := in.CreatedLBs[i]
		if err := c.DeleteHTTPLoadBalancer(ctx, in.TargetNamespace, name); err != nil {
			logger.Warn("rollback: failed to delete lb from target", "lb", name, "namespace", in.TargetNamespace, "error", err)
			continue
		}
		logger.Info("rollback: deleted lb from target", "lb", name, "namespace", in.TargetNamespace)
	}

	for i := len(in.CreatedDeps) - 1; i >= 0; i-- {
		dep := in.CreatedDeps[i]
		if err := c.DeleteConfigObject(ctx, in.TargetNamespace, dep.Kind, dep.Name); err != nil {
			logger.Warn("rollback: failed to delete dependency from target", "dep", dep.Kind+"/"+dep.Name, "error", err)
			continue
		}
		logger.Info("rollback: deleted dependency from target", "dep", dep.Kind+"/"+dep.Name)
	}

	logger.Info("rollback: restoring objects in source namespace")

	for i := len(in.DeletedDeps) - 1; i >= 0; i-- {
		d := in.DeletedDeps[i]
		metadata, spec := client.PrepareForMove(d.Config, d.Namespace, d.Namespace)
		if _, err := c.CreateConfigObject(ctx, d.Namespace, d.Kind, metadata, spec); err != nil {
			logger.Warn("rollback: failed to restore dependency in source", "dep", d.Kind+"/"+d.Name, "namespace", d.Namespace, "error", err)
			out.FailedDeps[d.Kind+"/"+d.Name] = err
			continue
		}
		logger.Info("rollback: restored dependency in source", "dep", d.Kind+"/"+d.Name, "namespace", d.Namespace)
		out.RestoredDeps[d.Kind+"/"+d.Name] = struct{}{}
	}

	for i := len(in.DeletedLBs) - 1; i >= 0; i-- {
		lb := in.DeletedLBs[i]
		metadata, spec := client.PrepareForMove(lb.Config, lb.Namespace, lb.Namespace)
		if _, err := c.CreateHTTPLoadBalancer(ctx, lb.Namespace, metadata, spec); err != nil {
			logger.Warn("rollback: failed to restore lb in source", "lb", lb.Name, "namespace", lb.Namespace, "error", err)
			out.FailedLBs[lb.Namespace+"/"+lb.Name] = err
			continue
		}
		logger.Info("rollback: restored lb in source", "lb", lb.Name, "namespace", lb.Namespace)

		restored := RestoredLB{}
		if doc, err := c.GetHTTPLoadBalancer(ctx, lb.Namespace, lb.Name); err == nil {
			restored.CNAME = client.CNAME(doc)
			restored.ACMECNAME = client.ACMECNAME(doc)
		} else {
			logger.Debug("rollback: could not fetch cname for restored lb", "lb", lb.Name, "error", err)
			restored.CNAME = "(fetch failed after rollback)"
			restored.ACMECNAME = "(fetch failed after rollback)"
		}
		out.RestoredLBs[lb.Namespace+"/"+lb.Name] = restored
	}

	return out
}
