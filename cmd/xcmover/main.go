package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath     string
	targetOverride string
	forceAll       bool
	dryRun         bool
	conflictAction string
	skipDryRun     bool
	verbose        bool

	scanOutputDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "xcmover",
	Short: "Move F5 Distributed Cloud load balancers and their dependencies between namespaces",
	Long: `xcmover transactionally relocates HTTP/HTTPS load balancers and every
object they depend on (origin pools, health checks, certificates, service
policies, API definitions, app firewalls, IP prefix sets, rate limiter
policies, user identifications) from their current namespace into a single
target namespace.

Run "xcmover scan" first to discover what load balancers exist on the
tenant and produce a starter move-list CSV, then "xcmover move" to plan
and execute the relocation.`,
}

var moveCmd = &cobra.Command{
	Use:   "move <move-list.csv>",
	Short: "Plan or execute a move of the load balancers named in a CSV move list",
	Long: `Load balancers that share a dependency are moved together as one batch.
Always run with --dry-run first: it previews every planned change, writes
an HTML report, and records a fingerprint of this exact tenant/target/move
list that a subsequent real run will require to proceed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := moveOptions{
			ConfigPath:     configPath,
			CSVPath:        args[0],
			TargetOverride: targetOverride,
			ForceAll:       forceAll,
			DryRun:         dryRun,
			ConflictAction: conflictAction,
			SkipDryRun:     skipDryRun,
			Verbose:        verbose,
		}
		return runMove(context.Background(), opts)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Enumerate every namespace and load balancer on the tenant",
	Long: `scan lists every namespace on the tenant (narrowed by namespaces.include
/ namespaces.exclude in the config file), enumerates the load balancers in
each, and writes a move-list CSV plus an HTML report summarizing what was
found. Use it to seed the CSV consumed by "xcmover move".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(context.Background(), scanOptions{
			ConfigPath: configPath,
			OutputDir:  scanOutputDir,
			Verbose:    verbose,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/mover.yaml", "path to the mover YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	moveCmd.Flags().StringVar(&targetOverride, "target", "", "target namespace override (defaults to mover.target_namespace in config)")
	moveCmd.Flags().BoolVar(&forceAll, "force-all", false, "run every batch without per-batch confirmation (batches are never prompted for, so this flag does not change behaviour)")
	moveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview the move without changing anything; writes the fingerprint required for a real run")
	moveCmd.Flags().StringVar(&conflictAction, "conflict-action", "ask", "how to resolve a name already present in the target namespace: ask, skip, or prefix")
	moveCmd.Flags().BoolVar(&skipDryRun, "skip-dry-run", false, "allow a real run without a matching dry-run fingerprint (requires typing SKIP-DRYRUN)")

	scanCmd.Flags().StringVarP(&scanOutputDir, "output-dir", "o", "", "directory to write the scan CSV and report into (defaults to report.output_dir in config)")

	rootCmd.AddCommand(moveCmd, scanCmd)
}
