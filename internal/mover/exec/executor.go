package exec

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/client"
	"github.com/f5devops/xc-ns-mover/internal/mover/discover"
	"github.com/f5devops/xc-ns-mover/internal/mover/preflight"
	"github.com/f5devops/xc-ns-mover/internal/mover/rollback"
	"github.com/f5devops/xc-ns-mover/internal/mover/spec"
)

// APIClient is the subset of client.Client the executor needs.
type APIClient interface {
	DeleteHTTPLoadBalancer(ctx context.Context, namespace, name string) error
	DeleteConfigObject(ctx context.Context, namespace, resourceType, name string) error
	ProbeDeleteConfigObject(ctx context.Context, namespace, resourceType, name string) ([]client.Referrer, bool, error)
	GetConfigObject(ctx context.Context, namespace, resourceType, name string) (client.ConfigDocument, error)
	GetHTTPLoadBalancer(ctx context.Context, namespace, name string) (client.ConfigDocument, error)
	CreateConfigObject(ctx context.Context, namespace, resourceType string, metadata, spec map[string]any) (client.ConfigDocument, error)
	CreateHTTPLoadBalancer(ctx context.Context, namespace string, metadata, spec map[string]any) (client.ConfigDocument, error)
}

// Sleeper abstracts time.Sleep so ACME CNAME polling is deterministic in
// tests.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

const (
	acmePollInterval = 5 * time.Second
	acmePollAttempts = 6
)

type depKey struct {
	kind string
	name string
}

func keyOf(d discover.Dependency) depKey { return depKey{d.Kind, d.Name} }

// BatchInput bundles everything the executor needs to run one batch:
// already-fetched configs and the preflight decisions that constrain how
// each dependency is handled.
type BatchInput struct {
	Batch             batch.Batch
	LBConfigs         map[string]client.ConfigDocument // "namespace/name" -> config
	LBSrcNamespace    map[string]string                // "namespace/name" -> namespace (redundant with LB.Namespace, kept for rollback symmetry with the original)
	DepConfigs        map[string]client.ConfigDocument // "kind/name" -> config
	TargetNamespace   string
	ConflictSkipped   map[string]bool   // "kind/name" deps that exist in target already — use as-is
	NonPortableCerts  map[string]bool   // "kind/name" certs that stay in source
	ManualRework      map[string]preflight.ManualReworkItem
	DepRenameMap      map[string]string // "kind/name" -> new name (conflict-prefix resolution)
	DryRun            bool
	ForceAll          bool
}

// Executor runs batches of load balancer moves against APIClient.
type Executor struct {
	client  APIClient
	logger  *slog.Logger
	sleeper Sleeper
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper overrides the ACME CNAME poll sleeper (for tests).
func WithSleeper(s Sleeper) Option { return func(e *Executor) { e.sleeper = s } }

// New builds an Executor.
func New(c APIClient, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{client: c, logger: logger, sleeper: realSleeper{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteBatch moves every load balancer (and its dependencies) in
// in.Batch from their source namespaces into in.TargetNamespace,
// deleting top-down and creating bottom-up. Any failure triggers a full
// rollback of everything done so far in this batch.
func (e *Executor) ExecuteBatch(ctx context.Context, in BatchInput) []LoadBalancerResult {
	lbResults := make(map[string]*LoadBalancerResult, len(in.Batch.LBs))
	depResults := make(map[depKey]*DependencyResult, len(in.Batch.Deps))

	for _, lb := range in.Batch.LBs {
		key := lb.Namespace + "/" + lb.Name
		cfg := in.LBConfigs[key]
		lbResults[key] = &LoadBalancerResult{
			LBName:       lb.Name,
			SrcNamespace: lb.Namespace,
			DstNamespace: in.TargetNamespace,
			TLSMode:      client.TLSMode(cfg),
			CNAMEOld:     client.CNAME(cfg),
			ACMECNAMEOld: client.ACMECNAME(cfg),
			Domains:      client.ExtractLBDomains(cfg),
		}
	}
	for _, dep := range in.Batch.Deps {
		depResults[keyOf(dep)] = &DependencyResult{ResourceType: dep.Kind, Name: dep.Name}
	}

	if in.DryRun {
		for _, r := range lbResults {
			r.Status = StatusDryRun
		}
		for _, r := range depResults {
			r.Status = StatusDryRun
		}
		return collectResults(in.Batch, lbResults, depResults)
	}

	// Phase 3: delete top-down (LBs first, then deps).
	var deletedLBs []deletedLB
	var deletedDeps []deletedDep

	for _, lb := range in.Batch.LBs {
		key := lb.Namespace + "/" + lb.Name
		if err := e.client.DeleteHTTPLoadBalancer(ctx, lb.Namespace, lb.Name); err != nil {
			lbResults[key].Error = fmt.Sprintf("failed to delete load balancer from source namespace: %v", err)
			e.logger.Error("failed to delete load balancer", "lb", key, "error", err)
			return e.abortAndRollback(ctx, in, lbResults, depResults, deletedLBs, deletedDeps,
				"batch aborted — the load balancer could not be deleted from the source namespace")
		}
		deletedLBs = append(deletedLBs, deletedLB{name: lb.Name, namespace: lb.Namespace, config: in.LBConfigs[key]})
		e.logger.Info("deleted load balancer from source", "lb", key)
	}

	// Phase 3b: probe-delete remaining deps not yet removed as a side
	// effect, honoring conflict-skip and non-portable-cert exclusions.
	already := make(map[depKey]bool)
	for _, dep := range in.Batch.Deps {
		dk := keyOf(dep)
		rtName := dep.Kind + "/" + dep.Name

		if in.ConflictSkipped[rtName] {
			continue
		}
		if in.NonPortableCerts[rtName] {
			depResults[dk].Status = StatusManualRework
			if rw, ok := in.ManualRework[rtName]; ok && rw.MatchedCertName != "" {
				depResults[dk].Error = fmt.Sprintf("non-portable %s. matched to '%s' in '%s'", rw.SecretType, rw.MatchedCertName, rw.MatchedCertNS)
			} else {
				depResults[dk].Error = "non-portable private key. certificate stays in source namespace"
			}
			continue
		}

		referrers, deletedAsSideEffect, err := e.client.ProbeDeleteConfigObject(ctx, dep.Namespace, dep.Kind, dep.Name)
		if err != nil {
			depResults[dk].Error = fmt.Sprintf("probe delete failed: %v", err)
			e.logger.Error("probe delete failed", "dep", rtName, "error", err)
			return e.abortAndRollback(ctx, in, lbResults, depResults, deletedLBs, deletedDeps,
				"batch aborted — a dependency could not be checked for external references")
		}
		if deletedAsSideEffect {
			already[dk] = true
			deletedDeps = append(deletedDeps, deletedDep{kind: dep.Kind, name: dep.Name, namespace: dep.Namespace, config: in.DepConfigs[rtName]})
			depResults[dk].Status = StatusMoved
			e.logger.Info("deleted dependency from source (no referrers)", "dep", rtName)
			continue
		}

		external := filterKnownReferrers(referrers, in.Batch)
		if len(external) == 0 {
			continue
		}
		summary := summarizeReferrers(external)
		depResults[dk].Status = StatusBlocked
		depResults[dk].Error = fmt.Sprintf(
			"cannot move this dependency — still referenced by %d external object(s) not included in the move list: %s",
			len(external), summary)
		e.logger.Warn("dependency blocked by external referrers", "dep", rtName, "referrers", summary)

		return e.abortAndRollback(ctx, in, lbResults, depResults, deletedLBs, deletedDeps,
			fmt.Sprintf("batch blocked — %s '%s' is still referenced by external objects (%s)", friendlyType(dep.Kind), dep.Name, summary))
	}

	for _, dep := range in.Batch.Deps {
		dk := keyOf(dep)
		rtName := dep.Kind + "/" + dep.Name
		if already[dk] || in.ConflictSkipped[rtName] || in.NonPortableCerts[rtName] {
			continue
		}
		if err := e.client.DeleteConfigObject(ctx, dep.Namespace, dep.Kind, dep.Name); err != nil {
			depResults[dk].Error = fmt.Sprintf("failed to delete dependency from source namespace: %v", err)
			e.logger.Error("failed to delete dependency", "dep", rtName, "error", err)
			return e.abortAndRollback(ctx, in, lbResults, depResults, deletedLBs, deletedDeps,
				"batch aborted — a dependency could not be deleted from the source namespace")
		}
		deletedDeps = append(deletedDeps, deletedDep{kind: dep.Kind, name: dep.Name, namespace: dep.Namespace, config: in.DepConfigs[rtName]})
		e.logger.Info("deleted dependency from source", "dep", rtName)
	}

	// Phase 4: create bottom-up (leaf deps first, then LBs).
	var createdDeps []depKey
	var createdLBs []batch.LoadBalancerRef

	for i := len(in.Batch.Deps) - 1; i >= 0; i-- {
		dep := in.Batch.Deps[i]
		dk := keyOf(dep)
		rtName := dep.Kind + "/" + dep.Name

		if in.ConflictSkipped[rtName] {
			depResults[dk].Status = StatusSkipped
			depResults[dk].Error = fmt.Sprintf("skipped due to name conflict — an object named '%s' already exists in target; it will be referenced instead", dep.Name)
			continue
		}
		if in.NonPortableCerts[rtName] {
			continue // already reported in phase 3b
		}

		rawCfg := in.DepConfigs[rtName]
		metadata, cleanSpec := client.PrepareForMove(rawCfg, dep.Namespace, in.TargetNamespace)

		actualName := dep.Name
		if newName, ok := in.DepRenameMap[rtName]; ok {
			actualName = newName
			metadata["name"] = newName
			depResults[dk].NewName = newName
		}
		for subKey, newSubName := range in.DepRenameMap {
			if subKey == rtName {
				continue
			}
			parts := splitKey(subKey)
			cleanSpec = toMap(spec.RewriteNameRefs(spec.Value(cleanSpec), parts.name, newSubName, in.TargetNamespace))
		}

		if _, err := e.client.CreateConfigObject(ctx, in.TargetNamespace, dep.Kind, metadata, cleanSpec); err != nil {
			depResults[dk].Error = fmt.Sprintf("failed to create dependency in target namespace: %v", err)
			e.logger.Error("failed to create dependency", "dep", rtName, "error", err)
			return e.abortAndRollback(ctx, in, lbResults, depResults, deletedLBs, deletedDeps,
				"batch aborted — a dependency could not be created in the target namespace", withCreated(createdDeps, createdLBs)...)
		}
		createdDeps = append(createdDeps, dk)
		depResults[dk].Status = StatusMoved
		e.logger.Info("created dependency in target", "dep", rtName, "as", actualName)
	}

	for _, lb := range in.Batch.LBs {
		key := lb.Namespace + "/" + lb.Name
		rawCfg := in.LBConfigs[key]
		metadata, cleanSpec := client.PrepareForMove(rawCfg, lb.Namespace, in.TargetNamespace)

		for subKey, newSubName := range in.DepRenameMap {
			parts := splitKey(subKey)
			cleanSpec = toMap(spec.RewriteNameRefs(spec.Value(cleanSpec), parts.name, newSubName, in.TargetNamespace))
		}
		for certRT, item := range in.ManualRework {
			if item.MatchedCertName == "" {
				continue
			}
			parts := splitKey(certRT)
			cleanSpec = toMap(spec.RewriteCertRef(spec.Value(cleanSpec), parts.name, item.MatchedCertName, item.MatchedCertNS))
		}

		doc, err := e.client.CreateHTTPLoadBalancer(ctx, in.TargetNamespace, metadata, cleanSpec)
		if err != nil {
			lbResults[key].Error = fmt.Sprintf("failed to create load balancer in target namespace: %v", err)
			e.logger.Error("failed to create load balancer", "lb", key, "error", err)
			return e.abortAndRollback(ctx, in, lbResults, depResults, deletedLBs, deletedDeps,
				"batch aborted — the load balancer could not be created in the target namespace", withCreated(createdDeps, createdLBs)...)
		}
		createdLBs = append(createdLBs, lb)
		lbResults[key].Status = StatusMoved
		lbResults[key].CNAMENew = client.CNAME(doc)
		lbResults[key].ACMECNAMENew = client.ACMECNAME(doc)
		lbResults[key].DNSManaged = false
		e.logger.Info("created load balancer in target", "lb", key)

		if needsACMEPoll(lbResults[key]) {
			e.pollForACMECNAME(ctx, in.TargetNamespace, lb.Name, lbResults[key])
		}
	}

	return collectResults(in.Batch, lbResults, depResults)
}

func needsACMEPoll(r *LoadBalancerResult) bool {
	return strings.Contains(r.TLSMode, "Let's Encrypt") && r.ACMECNAMENew == ""
}

func (e *Executor) pollForACMECNAME(ctx context.Context, namespace, name string, result *LoadBalancerResult) {
	for attempt := 0; attempt < acmePollAttempts; attempt++ {
		e.sleeper.Sleep(acmePollInterval)
		doc, err := e.client.GetHTTPLoadBalancer(ctx, namespace, name)
		if err != nil {
			e.logger.Debug("could not poll for acme cname", "lb", name, "error", err)
			continue
		}
		if cname := client.ACMECNAME(doc); cname != "" {
			result.ACMECNAMENew = cname
			return
		}
	}
}

type deletedLB struct {
	name      string
	namespace string
	config    client.ConfigDocument
}

type deletedDep struct {
	kind      string
	name      string
	namespace string
	config    client.ConfigDocument
}

func (e *Executor) abortAndRollback(ctx context.Context, in BatchInput, lbResults map[string]*LoadBalancerResult, depResults map[depKey]*DependencyResult, deletedLBs []deletedLB, deletedDeps []deletedDep, reason string, created ...createdRecord) []LoadBalancerResult {
	rb := rollback.Input{TargetNamespace: in.TargetNamespace}
	for _, d := range deletedLBs {
		rb.DeletedLBs = append(rb.DeletedLBs, rollback.DeletedLB{Name: d.name, Namespace: d.namespace, Config: d.config})
	}
	for _, d := range deletedDeps {
		rb.DeletedDeps = append(rb.DeletedDeps, rollback.DeletedDep{Kind: d.kind, Name: d.name, Namespace: d.namespace, Config: d.config})
	}
	for _, c := range created {
		if c.isLB {
			rb.CreatedLBs = append(rb.CreatedLBs, c.name)
		} else {
			rb.CreatedDeps = append(rb.CreatedDeps, rollback.DepIdentity{Kind: c.kind, Name: c.name})
		}
	}

	outcome := rollback.Run(ctx, e.client, e.logger, rb)

	for key, restored := range outcome.RestoredLBs {
		if r, ok := lbResults[key]; ok {
			r.Status = StatusReverted
			if r.Error == "" {
				r.Error = reason
			}
			r.CNAMENew = restored.CNAME
			r.ACMECNAMENew = restored.ACMECNAME
		}
	}
	for key, restored := range outcome.RestoredDeps {
		if r, ok := depResults[depKeyFromString(key)]; ok {
			r.Status = StatusReverted
			r.Error = ""
			_ = restored
		}
	}
	// Objects rollback could not restore in source keep their original
	// create/delete error, with "ROLLBACK FAILED" and the restore error
	// appended, rather than being overwritten by the generic abort reason below.
	for key, rerr := range outcome.FailedLBs {
		if r, ok := lbResults[key]; ok {
			r.Status = StatusFailed
			if r.Error != "" {
				r.Error = fmt.Sprintf("%s; ROLLBACK FAILED: %v", r.Error, rerr)
			} else {
				r.Error = fmt.Sprintf("ROLLBACK FAILED: %v", rerr)
			}
		}
	}
	for key, rerr := range outcome.FailedDeps {
		if r, ok := depResults[depKeyFromString(key)]; ok {
			r.Status = StatusFailed
			if r.Error != "" {
				r.Error = fmt.Sprintf("%s; ROLLBACK FAILED: %v", r.Error, rerr)
			} else {
				r.Error = fmt.Sprintf("ROLLBACK FAILED: %v", rerr)
			}
		}
	}

	for key, r := range lbResults {
		if r.Status != StatusReverted {
			r.Status = StatusFailed
			if r.Error == "" {
				r.Error = reason
			}
		}
		_ = key
	}
	for key, r := range depResults {
		if r.Status == "" {
			r.Status = StatusFailed
			r.Error = reason
		}
		_ = key
	}

	return collectResults(in.Batch, lbResults, depResults)
}

type createdRecord struct {
	isLB bool
	kind string
	name string
}

func withCreated(deps []depKey, lbs []batch.LoadBalancerRef) []createdRecord {
	out := make([]createdRecord, 0, len(deps)+len(lbs))
	for _, d := range deps {
		out = append(out, createdRecord{kind: d.kind, name: d.name})
	}
	for _, lb := range lbs {
		out = append(out, createdRecord{isLB: true, name: lb.Name})
	}
	return out
}

func collectResults(b batch.Batch, lbResults map[string]*LoadBalancerResult, depResults map[depKey]*DependencyResult) []LoadBalancerResult {
	deps := make([]DependencyResult, 0, len(depResults))
	for _, dep := range b.Deps {
		deps = append(deps, *depResults[keyOf(dep)])
	}

	out := make([]LoadBalancerResult, 0, len(b.LBs))
	keys := make([]string, 0, len(b.LBs))
	for _, lb := range b.LBs {
		keys = append(keys, lb.Namespace+"/"+lb.Name)
	}
	sort.Strings(keys)
	for _, key := range keys {
		r := *lbResults[key]
		r.Dependencies = deps
		out = append(out, r)
	}
	return out
}

func filterKnownReferrers(referrers []client.Referrer, b batch.Batch) []client.Referrer {
	inBatch := make(map[string]bool, len(b.LBs))
	for _, lb := range b.LBs {
		inBatch[lb.Namespace+"/"+lb.Name] = true
	}
	var out []client.Referrer
	for _, r := range referrers {
		if r.Namespace == "system" || r.Namespace == "shared" {
			continue
		}
		if inBatch[r.Namespace+"/"+r.Name] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func summarizeReferrers(referrers []client.Referrer) string {
	const maxShown = 5
	var parts []string
	for i, r := range referrers {
		if i >= maxShown {
			parts = append(parts, fmt.Sprintf("(+%d more)", len(referrers)-maxShown))
			break
		}
		if r.Raw != "" && r.Kind == "?" {
			parts = append(parts, r.Raw)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name))
	}
	return strings.Join(parts, ", ")
}

type splitResult struct {
	kind string
	name string
}

func splitKey(key string) splitResult {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) == 2 {
		return splitResult{kind: parts[0], name: parts[1]}
	}
	return splitResult{name: key}
}

func toMap(v spec.Value) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func depKeyFromString(s string) depKey {
	parts := splitKey(s)
	return depKey{kind: parts.kind, name: parts.name}
}
