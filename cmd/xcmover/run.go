package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/client"
	"github.com/f5devops/xc-ns-mover/internal/mover/config"
	"github.com/f5devops/xc-ns-mover/internal/mover/discover"
	"github.com/f5devops/xc-ns-mover/internal/mover/exec"
	"github.com/f5devops/xc-ns-mover/internal/mover/fingerprint"
	"github.com/f5devops/xc-ns-mover/internal/mover/preflight"
	"github.com/f5devops/xc-ns-mover/internal/mover/report"
	pkglogger "github.com/f5devops/xc-ns-mover/pkg/logger"
)

// moveOptions carries the resolved CLI flags into runMove.
type moveOptions struct {
	ConfigPath     string
	CSVPath        string
	TargetOverride string
	ForceAll       bool
	DryRun         bool
	ConflictAction string
	SkipDryRun     bool
	Verbose        bool
}

// runMove executes the full discovery/preflight/execute/report pipeline
// for one invocation of xc-ns-mover.
func runMove(ctx context.Context, opts moveOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg, opts.Verbose).With("run_id", uuid.New().String())

	targetNamespace := cfg.Mover.TargetNamespace
	if opts.TargetOverride != "" {
		targetNamespace = opts.TargetOverride
	}
	if targetNamespace == "" {
		return fmt.Errorf("no target namespace: set mover.target_namespace in config or pass --target")
	}
	if err := config.ValidateXCName(targetNamespace, "target namespace"); err != nil {
		return err
	}

	csvBytes, err := os.ReadFile(opts.CSVPath)
	if err != nil {
		return fmt.Errorf("reading move list %s: %w", opts.CSVPath, err)
	}
	moveList, err := readMoveCSV(opts.CSVPath)
	if err != nil {
		return err
	}
	if len(moveList) == 0 {
		return fmt.Errorf("move list %s contains no load balancer entries", opts.CSVPath)
	}

	conflictAction := preflight.ConflictAction(opts.ConflictAction)
	switch conflictAction {
	case preflight.ConflictAsk, preflight.ConflictSkip, preflight.ConflictPrefix:
	default:
		return fmt.Errorf("invalid --conflict-action %q: must be ask, skip, or prefix", opts.ConflictAction)
	}

	gate := fingerprint.New("")
	digest := fingerprint.Compute(cfg.Tenant.Name, targetNamespace, string(csvBytes))

	if !opts.DryRun {
		if opts.SkipDryRun {
			prompter := newStdinPrompter()
			answer := prompter.readLine("Type SKIP-DRYRUN to proceed without a prior dry run: ")
			if answer != "SKIP-DRYRUN" {
				return fmt.Errorf("real run aborted: confirmation phrase not entered")
			}
			logger.Warn("proceeding without dry-run verification", "override", "SKIP-DRYRUN")
		} else if !gate.Verify(cfg.Tenant.Name, targetNamespace, string(csvBytes)) {
			return fmt.Errorf("no matching dry-run fingerprint found for this tenant/target/move-list; " +
				"run with --dry-run first, or pass --skip-dry-run to override")
		}
	}

	c, err := client.New(cfg.Auth.APIURL, cfg.Auth.APIToken, client.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("building api client: %w", err)
	}

	printStep("Discovering load balancer dependencies", "")
	plans, lbConfigs, err := discoverPlans(ctx, c, logger, moveList)
	if err != nil {
		return err
	}
	printStep("Discovering load balancer dependencies", fmt.Sprintf("ok (%d load balancer(s))", len(plans)))

	batches := batch.Cluster(plans, logger)

	printStep("Scanning for external references", "")
	externalRefs := preflight.ScanExternalReferences(ctx, c, logger, moveList, plans)
	printStep("Scanning for external references", fmt.Sprintf("%d dependency(ies) flagged", len(externalRefs)))

	printStep("Detecting non-portable certificates", "")
	nonPortable := preflight.DetectNonPortableCerts(ctx, c, logger, plans)
	printStep("Detecting non-portable certificates", fmt.Sprintf("%d found", len(nonPortable)))

	lbDomains := preflight.LBDomainsFromPlans(lbConfigs)
	lbSrcNamespace := make(map[string]string, len(moveList))
	for _, lb := range moveList {
		lbSrcNamespace[lb.Namespace+"/"+lb.Name] = lb.Namespace
	}

	printStep("Matching replacement certificates", "")
	certItems, certBlocked := preflight.MatchCertificates(ctx, c, logger, nonPortable, lbDomains, lbSrcNamespace, targetNamespace, batches)
	certMatched := 0
	for _, it := range certItems {
		if it.MatchedCertName != "" {
			certMatched++
		}
	}
	printStep("Matching replacement certificates", fmt.Sprintf("%d matched, %d blocked", certMatched, len(certBlocked)))

	printStep("Scanning for XC-managed DNS zones", "")
	dnsResult := preflight.ScanDNSZones(ctx, c, logger, lbConfigs)
	printStep("Scanning for XC-managed DNS zones", fmt.Sprintf("%d load balancer(s) fully managed", len(dnsResult.ManagedLBKeys)))

	printStep("Checking for name conflicts in target namespace", "")
	conflictSkipped, depRenameMap, namesBlocked, err := resolveConflicts(ctx, c, logger, plans, moveList, targetNamespace, cfg.Mover.ConflictPrefix, conflictAction)
	if err != nil {
		return err
	}
	printStep("Checking for name conflicts in target namespace", fmt.Sprintf("%d renamed, %d skipped", len(depRenameMap), len(conflictSkipped)))

	manualRework := make(map[string]preflight.ManualReworkItem, len(certItems))
	var reworkItems []preflight.ManualReworkItem
	for key, item := range certItems {
		rt := key.Kind + "/" + key.Name
		manualRework[rt] = item
		reworkItems = append(reworkItems, item)
	}
	sort.Slice(reworkItems, func(i, j int) bool { return reworkItems[i].CertKey.Name < reworkItems[j].CertKey.Name })

	nonPortableSet := make(map[string]bool, len(nonPortable))
	for _, np := range nonPortable {
		nonPortableSet[np.Key.Kind+"/"+np.Key.Name] = true
	}

	blockedLBs := make(map[string]bool, len(certBlocked)+len(namesBlocked))
	for k := range certBlocked {
		blockedLBs[k] = true
	}
	for k := range namesBlocked {
		blockedLBs[k] = true
	}

	externallyBlocked := blockExternallyReferencedBatches(batches, externalRefs)

	graphs := buildBatchGraphs(batches, externalRefs)

	depConfigs := make(map[string]client.ConfigDocument)
	var results []exec.LoadBalancerResult
	executor := exec.New(c, logger)

	total := len(moveList)
	done := 0
	for i, b := range batches {
		if reason, blocked := externallyBlocked[i]; blocked {
			for _, lb := range b.LBs {
				results = append(results, exec.LoadBalancerResult{
					LBName: lb.Name, SrcNamespace: lb.Namespace, DstNamespace: targetNamespace,
					Status: exec.StatusBlocked,
					Error:  reason,
				})
				done++
			}
			printProgress(done, total, 40)
			continue
		}

		if batchBlocked(b, blockedLBs) {
			for _, lb := range b.LBs {
				results = append(results, exec.LoadBalancerResult{
					LBName: lb.Name, SrcNamespace: lb.Namespace, DstNamespace: targetNamespace,
					Status: exec.StatusBlocked,
					Error:  "batch contains a load balancer blocked by an unresolved certificate or name conflict",
				})
				done++
			}
			printProgress(done, total, 40)
			continue
		}

		fetchDepConfigs(ctx, c, logger, b, depConfigs)

		input := exec.BatchInput{
			Batch:            b,
			LBConfigs:        lbConfigs,
			LBSrcNamespace:   lbSrcNamespace,
			DepConfigs:       depConfigs,
			TargetNamespace:  targetNamespace,
			ConflictSkipped:  conflictSkipped,
			NonPortableCerts: nonPortableSet,
			ManualRework:     manualRework,
			DepRenameMap:     depRenameMap,
			DryRun:           opts.DryRun,
			ForceAll:         opts.ForceAll,
		}

		batchResults := executor.ExecuteBatch(ctx, input)
		results = append(results, batchResults...)
		done += len(b.LBs)
		printProgress(done, total, 40)
		logger.Info("batch complete", "batch", i+1, "of", len(batches))
	}

	for i := range results {
		key := results[i].SrcNamespace + "/" + results[i].LBName
		results[i].DNSManaged = dnsResult.ManagedLBKeys[key]
	}

	if opts.DryRun {
		if err := gate.Write(digest); err != nil {
			logger.Warn("could not write dry-run fingerprint", "error", err)
		}
	} else {
		_ = gate.Delete()
	}

	reporter := report.New(cfg.Report.OutputDir)
	path, err := reporter.Generate(cfg.Tenant.Name, targetNamespace, results, opts.DryRun, graphs, reworkItems)
	if err != nil {
		logger.Warn("could not write html report", "error", err)
	} else {
		fmt.Printf("\nReport written to %s\n", path)
	}

	return summarize(results)
}

// newLogger builds the run's structured logger from config, with
// --verbose forcing debug level regardless of the configured level.
func newLogger(cfg *config.Config, verbose bool) *slog.Logger {
	lc := pkglogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
	if verbose {
		lc.Level = "debug"
	}
	return pkglogger.NewLogger(lc)
}

// discoverPlans fetches every load balancer named on the move list and
// walks its dependency graph.
func discoverPlans(ctx context.Context, c *client.Client, logger *slog.Logger, moveList []batch.LoadBalancerRef) ([]batch.Plan, map[string]client.ConfigDocument, error) {
	resolver := discover.New(c, logger)

	lbConfigs := make(map[string]client.ConfigDocument, len(moveList))
	var plans []batch.Plan

	for _, lb := range moveList {
		doc, err := c.GetHTTPLoadBalancer(ctx, lb.Namespace, lb.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching load balancer %s/%s: %w", lb.Namespace, lb.Name, err)
		}
		lbConfigs[lb.Namespace+"/"+lb.Name] = doc

		deps := resolver.Discover(ctx, lb.Namespace, doc.Spec())
		plans = append(plans, batch.Plan{LB: lb, Deps: deps})
	}

	return plans, lbConfigs, nil
}

// fetchDepConfigs populates depConfigs (keyed "kind/name") with every
// dependency in b not already fetched.
func fetchDepConfigs(ctx context.Context, c *client.Client, logger *slog.Logger, b batch.Batch, depConfigs map[string]client.ConfigDocument) {
	for _, dep := range b.Deps {
		key := dep.Kind + "/" + dep.Name
		if _, ok := depConfigs[key]; ok {
			continue
		}
		doc, err := c.GetConfigObject(ctx, dep.Namespace, dep.Kind, dep.Name)
		if err != nil {
			logger.Warn("cannot fetch dependency config", "dep", key, "error", err)
			continue
		}
		depConfigs[key] = doc
	}
}

// resolveConflicts checks every load balancer and dependency name against
// what already exists in targetNamespace. conflictAction is applied to
// dependency names only: a load balancer whose name already exists in the
// target is always reported in blockedLBs and is never renamed or skipped.
func resolveConflicts(
	ctx context.Context,
	c *client.Client,
	logger *slog.Logger,
	plans []batch.Plan,
	moveList []batch.LoadBalancerRef,
	targetNamespace, prefix string,
	action preflight.ConflictAction,
) (conflictSkipped map[string]bool, depRenameMap map[string]string, blockedLBs map[string]bool, err error) {
	conflictSkipped = make(map[string]bool)
	depRenameMap = make(map[string]string)
	blockedLBs = make(map[string]bool)

	existingLBs, err := c.ListHTTPLoadBalancerNames(ctx, targetNamespace)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing load balancers in target namespace %s: %w", targetNamespace, err)
	}

	var prompter *stdinPrompter
	if action == preflight.ConflictAsk {
		prompter = newStdinPrompter()
	}

	for _, lb := range moveList {
		if !existingLBs[lb.Name] {
			continue
		}
		logger.Warn("load balancer name already exists in target namespace", "name", lb.Name, "namespace", targetNamespace)
		blockedLBs[lb.Namespace+"/"+lb.Name] = true
	}

	kindsSeen := make(map[string]bool)
	depToLBs := batch.DepToLBs(plans)
	for depKey := range depToLBs {
		kind := depKindOf(depKey)
		if kind == "" || kindsSeen[kind] {
			continue
		}
		kindsSeen[kind] = true

		existing, lerr := c.ListConfigObjectNames(ctx, targetNamespace, kind)
		if lerr != nil {
			logger.Warn("cannot list existing objects for conflict check", "kind", kind, "error", lerr)
			continue
		}

		for dk := range depToLBs {
			if depKindOf(dk) != kind {
				continue
			}
			name := depNameOf(dk)
			if !existing[name] {
				continue
			}
			desc := fmt.Sprintf("%s %q", kind, name)
			newName, rename := preflight.ResolveConflict(desc, name, prefix, action, prompter)
			if rename {
				depRenameMap[dk] = newName
			} else {
				conflictSkipped[dk] = true
			}
		}
	}

	return conflictSkipped, depRenameMap, blockedLBs, nil
}

func depKindOf(dk string) string {
	for i := len(dk) - 1; i >= 0; i-- {
		if dk[i] == '/' {
			return dk[:i]
		}
	}
	return ""
}

func depNameOf(dk string) string {
	for i := len(dk) - 1; i >= 0; i-- {
		if dk[i] == '/' {
			return dk[i+1:]
		}
	}
	return dk
}

func batchBlocked(b batch.Batch, blocked map[string]bool) bool {
	for _, lb := range b.LBs {
		if blocked[lb.Namespace+"/"+lb.Name] {
			return true
		}
	}
	return false
}

// blockExternallyReferencedBatches pre-marks BLOCKED every batch that owns a
// dependency still actively referenced by a load balancer outside the move
// list, per spec.md §4.5/§7: such a batch must never reach ExecuteBatch, so
// no mutation is attempted against it. The returned message names the
// external referrer's identity for each blocked batch's per-object error.
func blockExternallyReferencedBatches(batches []batch.Batch, externalRefs map[string][]preflight.ExternalRef) map[int]string {
	blocked := make(map[int]string)

	for i, b := range batches {
		seen := make(map[string]bool)
		var referrers []string
		for _, dep := range b.Deps {
			refs, ok := externalRefs[dep.Kind+"/"+dep.Name]
			if !ok {
				continue
			}
			for _, ref := range refs {
				identity := ref.LBNamespace + "/" + ref.LBName
				if seen[identity] {
					continue
				}
				seen[identity] = true
				referrers = append(referrers, identity)
			}
		}
		if len(referrers) == 0 {
			continue
		}
		sort.Strings(referrers)
		blocked[i] = fmt.Sprintf("batch blocked: dependency still referenced outside the move list by %s", strings.Join(referrers, ", "))
	}

	return blocked
}

// buildBatchGraphs converts the batch/dependency data collected during
// discovery into the shape the HTML report's SVG renderer consumes.
func buildBatchGraphs(batches []batch.Batch, externalRefs map[string][]preflight.ExternalRef) []report.BatchGraphData {
	graphs := make([]report.BatchGraphData, 0, len(batches))

	for i, b := range batches {
		g := report.BatchGraphData{
			BatchIndex:   i,
			LBToDeps:     make(map[string][]report.DepKey),
			SharedDeps:   make(map[report.DepKey]bool),
			DepChildren:  make(map[report.DepKey][]report.DepKey),
			ExternalDeps: make(map[report.DepKey]bool),
		}

		depCount := make(map[report.DepKey]int)
		for _, lb := range b.LBs {
			g.LBNames = append(g.LBNames, lb.Name)
		}

		lbDeps := make(map[string][]report.DepKey, len(b.LBs))
		for _, lb := range b.LBs {
			lbDeps[lb.Name] = nil
		}
		for _, dep := range b.Deps {
			dk := report.DepKey{Kind: dep.Kind, Name: dep.Name}
			depCount[dk]++
			for _, lb := range b.LBs {
				lbDeps[lb.Name] = append(lbDeps[lb.Name], dk)
			}
			if _, ok := externalRefs[dep.Kind+"/"+dep.Name]; ok {
				g.ExternalDeps[dk] = true
			}
		}
		g.LBToDeps = lbDeps

		for dk, n := range depCount {
			if n > 1 {
				g.SharedDeps[dk] = true
			}
		}

		graphs = append(graphs, g)
	}

	return graphs
}

func summarize(results []exec.LoadBalancerResult) error {
	failed := 0
	for _, r := range results {
		if r.Status == exec.StatusFailed || r.Status == exec.StatusBlocked {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d load balancer(s) did not complete successfully", failed, len(results))
	}
	return nil
}
