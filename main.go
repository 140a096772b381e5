package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leighmcculloch/fleet/internal/config"
	"github.com/leighmcculloch/fleet/internal/textfix"
	"github.com/leighmcculloch/fleet/internal/ui"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		verbose    bool
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:   "fleet",
		Short: "Maintain a fleet of editor projects",
		Long: "A tool to normalize, fix, commit and build a fleet of Unity projects. " +
			"Per-project failures are reported and never stop the rest of the fleet.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "configuration file")

	load := func() (*fleet, error) {
		log := ui.New(stderr, verbose)
		log.Debugf("loading configuration from %s", configPath)
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		log.Debugf("%d projects configured", len(cfg.Projects()))
		return newFleet(cfg, log), nil
	}

	var (
		skipGit     bool
		gitOnly     bool
		runBatch    bool
		runParallel bool
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize sources, fix APIs, add packages, then commit and push",
		Long: "Convert sources to UTF-8, rewrite deprecated API uses and add the configured packages to every " +
			"project, then commit and push each project to its deepest branch. Optionally run the editor in batch mode afterwards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if skipGit && gitOnly {
				return fmt.Errorf("--skip-git and --git-only cannot be combined")
			}
			f, err := load()
			if err != nil {
				return err
			}
			message := f.cfg.Git().CommitMessage
			if !gitOnly {
				f.normalize()
				fixed := f.fixAPIs()
				added := f.mergePackages()
				message = commitMessage(message, fixed, added)
			}
			if !skipGit {
				f.sync(message)
			}
			if runBatch {
				f.batch(cmd.Context(), runParallel, f.cfg.Editor().BatchMethod)
			}
			return nil
		},
	}
	runCmd.Flags().BoolVar(&skipGit, "skip-git", false, "skip commit and push")
	runCmd.Flags().BoolVar(&gitOnly, "git-only", false, "only commit and push")
	runCmd.Flags().BoolVar(&runBatch, "batch", false, "run the editor in batch mode afterwards")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "run batch mode on several projects at once")

	var (
		batchParallel bool
		batchMethod   string
	)
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the editor in batch mode for every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := load()
			if err != nil {
				return err
			}
			method := f.cfg.Editor().BatchMethod
			if cmd.Flags().Changed("method") {
				method = batchMethod
			}
			f.batch(cmd.Context(), batchParallel, method)
			return nil
		},
	}
	batchCmd.Flags().BoolVar(&batchParallel, "parallel", false, "run several projects at once")
	batchCmd.Flags().StringVar(&batchMethod, "method", "", "editor method to execute")

	var buildParallel bool
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build every project with the editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := load()
			if err != nil {
				return err
			}
			f.build(cmd.Context(), buildParallel)
			return nil
		},
	}
	buildCmd.Flags().BoolVar(&buildParallel, "parallel", false, "build several projects at once")

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := load()
			if err != nil {
				return err
			}
			f.clean()
			return nil
		},
	}

	fixCmd := &cobra.Command{
		Use:   "fix-apis",
		Short: "Rewrite deprecated API uses in every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := load()
			if err != nil {
				return err
			}
			f.fixAPIs()
			return nil
		},
	}

	var reportPath string
	checkCmd := &cobra.Command{
		Use:   "check-apis",
		Short: "Write a compatibility report for every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := load()
			if err != nil {
				return err
			}
			path := f.cfg.ReportPath()
			if cmd.Flags().Changed("out") {
				path = reportPath
			}
			if verbose {
				fmt.Fprintf(stderr, "scanning %d projects\n", len(f.cfg.Projects()))
			}
			reports := textfix.Scan(f.cfg.Projects())
			out, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create report: %w", err)
			}
			defer out.Close()
			if err := textfix.WriteReport(out, reports, time.Now()); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			abs, _ := filepath.Abs(path)
			f.log.Printf("report written: %s", abs)
			return nil
		},
	}
	checkCmd.Flags().StringVar(&reportPath, "out", "", "report file (default from configuration)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Capture the git state of every project as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := load()
			if err != nil {
				return err
			}
			status := f.capture()

			if verbose {
				fmt.Fprintf(stderr, "writing JSON output\n")
			}
			encoder := json.NewEncoder(stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(status)
		},
	}

	rootCmd.AddCommand(runCmd, batchCmd, buildCmd, cleanCmd, fixCmd, checkCmd, statusCmd)
	rootCmd.SetArgs(args[1:])
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}
