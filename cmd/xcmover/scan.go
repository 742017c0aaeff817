package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/f5devops/xc-ns-mover/internal/mover/client"
	"github.com/f5devops/xc-ns-mover/internal/mover/config"
	"github.com/f5devops/xc-ns-mover/internal/mover/report"
)

type scanOptions struct {
	ConfigPath string
	OutputDir  string
	Verbose    bool
}

// runScan enumerates every namespace on the tenant (after the
// include/exclude filter), lists every load balancer in each, and
// writes a move-list CSV plus an HTML report an operator can use to
// decide what to feed into "xcmover move".
func runScan(ctx context.Context, opts scanOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, opts.Verbose)

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.Report.OutputDir
	}

	c, err := client.New(cfg.Auth.APIURL, cfg.Auth.APIToken, client.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	allNamespaces, err := c.ListNamespaces(ctx)
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}

	scanned := config.ResolveNamespaces(allNamespaces, cfg.Namespaces.Include, cfg.Namespaces.Exclude)
	sort.Strings(scanned)

	printFilterSummary(len(allNamespaces), len(scanned), cfg.Namespaces.Include, cfg.Namespaces.Exclude)

	var rows []report.NamespaceScanRow
	for i, ns := range scanned {
		lbs, err := c.ListAllLoadBalancers(ctx, ns)
		if err != nil {
			logger.Error("list load balancers failed", "namespace", ns, "error", err)
			continue
		}
		for _, lb := range lbs {
			rows = append(rows, report.NamespaceScanRow{Namespace: ns, LBName: lb.Name, LBKind: lb.Kind})
		}
		printProgress(i+1, len(scanned), 40)
	}

	timestamp := time.Now()
	subdir := filepath.Join(outputDir, fmt.Sprintf("scanner_%s", timestamp.Format("20060102-150405")))
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return fmt.Errorf("create scan output dir: %w", err)
	}

	csvPath := filepath.Join(subdir, fmt.Sprintf("scanner_%s.csv", timestamp.Format("20060102-150405")))
	if err := writeScanCSV(csvPath, cfg.Tenant.Name, timestamp, scanned, rows); err != nil {
		return fmt.Errorf("write scan CSV: %w", err)
	}

	reportPath, err := report.NewScanReporter(subdir).Generate(
		cfg.Tenant.Name, scanned, len(allNamespaces), rows, cfg.Namespaces.Include, cfg.Namespaces.Exclude)
	if err != nil {
		return fmt.Errorf("write scan report: %w", err)
	}

	fmt.Printf("\nFound %d load balancer(s) across %d namespace(s).\n", len(rows), len(scanned))
	fmt.Printf("Move-list CSV: %s\n", csvPath)
	fmt.Printf("HTML report:   %s\n", reportPath)
	return nil
}

func printFilterSummary(totalNS, scannedNS int, include, exclude []string) {
	switch {
	case len(include) > 0 && len(exclude) > 0:
		fmt.Printf("Scanning %d of %d namespace(s) (include list minus exclude list)...\n", scannedNS, totalNS)
	case len(include) > 0:
		fmt.Printf("Scanning %d of %d namespace(s) (include list)...\n", scannedNS, totalNS)
	case len(exclude) > 0:
		fmt.Printf("Scanning %d of %d namespace(s) (exclude list applied)...\n", scannedNS, totalNS)
	default:
		fmt.Printf("Scanning all %d namespace(s)...\n", scannedNS)
	}
}

// writeScanCSV writes the move-list CSV with a commented header block
// (tenant, scan time, counts, usage instructions) above a data marker,
// so the file can be copied straight into a move-list without editing.
func writeScanCSV(path, tenant string, scanTime time.Time, scanned []string, rows []report.NamespaceScanRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "# Scanner report -- tenant: %s\n", tenant)
	fmt.Fprintf(f, "# generated: %s\n", scanTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "# namespaces scanned: %d\n", len(scanned))
	fmt.Fprintf(f, "# load balancers found: %d\n", len(rows))
	fmt.Fprintln(f, "#")
	fmt.Fprintln(f, "# Copy the rows you want to move into config/xc-mover.csv and run:")
	fmt.Fprintln(f, "#   xcmover move config/xc-mover.csv --dry-run")
	fmt.Fprintln(f, "#")
	fmt.Fprintln(f, "# --- DATA STARTS BELOW THIS LINE ---")
	fmt.Fprintln(f, "namespace,lb_name")

	sorted := append([]report.NamespaceScanRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Namespace != sorted[j].Namespace {
			return sorted[i].Namespace < sorted[j].Namespace
		}
		return sorted[i].LBName < sorted[j].LBName
	})
	for _, row := range sorted {
		fmt.Fprintf(f, "%s,%s\n", row.Namespace, row.LBName)
	}
	return nil
}
