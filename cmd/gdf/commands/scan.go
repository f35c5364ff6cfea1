package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/internal/scanner"
	"github.com/l3aro/go-dataflow/pkg/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Report dead statements across a directory tree",
	Long: `Walks a directory for Go files, honouring .gdfignore files and the exclude
patterns of the configuration, and reports dead statements in every function.
Only functions with findings are printed unless --all is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		opts := scanOptions{}
		opts.all, _ = cmd.Flags().GetBool("all")
		opts.fail, _ = cmd.Flags().GetBool("fail")
		if cmd.Flags().Changed("tests") {
			tests, _ := cmd.Flags().GetBool("tests")
			opts.tests = &tests
		}
		return runScan(cmd.Context(), current, root, opts)
	},
}

type scanOptions struct {
	all   bool
	fail  bool
	tests *bool
}

func runScan(ctx context.Context, e *env, root string, opts scanOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	scanOpts := scanner.DefaultOptions()
	scanOpts.Exclude = e.cfg.Exclude
	scanOpts.IncludeTests = e.cfg.IncludeTests
	if opts.tests != nil {
		scanOpts.IncludeTests = *opts.tests
	}
	files, err := scanner.New(scanOpts).Scan(root)
	if err != nil {
		return err
	}
	e.logger.Debug("scanned directory", "root", root, "files", len(files))

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.FullPath
	}

	spinner := log.NewProgressSpinner(fmt.Sprintf("Analyzing %d files...", len(paths)))
	spinner.Start()
	a, save := e.analyzer()
	reports, err := a.AnalyzeFiles(ctx, paths, e.cfg.Workers)
	spinner.Stop()
	save()
	if err != nil {
		return err
	}

	// report paths relative to the scan root
	rel := make(map[string]string, len(files))
	for _, f := range files {
		rel[f.FullPath] = f.Path
	}
	for _, r := range reports {
		if p, ok := rel[r.File]; ok {
			r.File = p
		}
	}

	if err := writeReports(e.out, reports, e.jsonOutput(), opts.all); err != nil {
		return err
	}
	if !e.jsonOutput() {
		printScanSummary(e, len(files), reports)
	}
	if opts.fail && anyDeadCode(reports) {
		return ErrDeadCodeFound
	}
	return nil
}

func printScanSummary(e *env, files int, reports []*pipeline.Report) {
	dead, failed := 0, 0
	for _, r := range reports {
		dead += len(r.DeadCode)
		if r.Error != "" {
			failed++
		}
	}
	fmt.Fprintf(e.out, "%d files, %d functions, %d dead statements", files, len(reports), dead)
	if failed > 0 {
		fmt.Fprintf(e.out, ", %d functions not analyzed", failed)
	}
	fmt.Fprintln(e.out)
}

func init() {
	scanCmd.Flags().Bool("all", false, "Print functions without findings too")
	scanCmd.Flags().Bool("fail", false, "Exit with an error when dead code is found")
	scanCmd.Flags().Bool("tests", false, "Include _test.go files")
	RootCmd.AddCommand(scanCmd)
}
