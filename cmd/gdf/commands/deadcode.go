package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/pkg/frontend"
	"github.com/l3aro/go-dataflow/pkg/pipeline"
)

// ErrDeadCodeFound is returned with --fail when a report lists dead code, so
// that the process exits non-zero.
var ErrDeadCodeFound = errors.New("dead code found")

var deadcodeCmd = &cobra.Command{
	Use:   "deadcode <file> [function]",
	Short: "Report dead statements in a file or function",
	Long: `Reports statements that are unreachable, either structurally or because a
branch condition is constant, and assignments to variables that are never
read afterwards. Without a function name every function of the file is
analysed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fail, _ := cmd.Flags().GetBool("fail")
		function := ""
		if len(args) == 2 {
			function = args[1]
		}
		return runDeadcode(current, args[0], function, fail)
	},
}

func runDeadcode(e *env, path, function string, fail bool) error {
	if err := checkGoFile(path); err != nil {
		return err
	}

	a, save := e.analyzer()
	defer save()

	var reports []*pipeline.Report
	if function != "" {
		rep, err := a.AnalyzeFunction(path, function)
		if err != nil {
			if errors.Is(err, frontend.ErrFunctionNotFound) {
				f, perr := frontend.ParseFile(path)
				if perr == nil {
					defer f.Close()
					return notFound(path, function, f.Functions())
				}
			}
			return err
		}
		reports = append(reports, rep)
	} else {
		var err error
		reports, err = a.AnalyzeFile(path)
		if err != nil {
			return err
		}
	}

	if err := writeReports(e.out, reports, e.jsonOutput(), true); err != nil {
		return err
	}
	if fail && anyDeadCode(reports) {
		return ErrDeadCodeFound
	}
	return nil
}

// writeReports prints reports as a JSON array or as text. With all unset,
// reports without findings are left out of the text form.
func writeReports(w io.Writer, reports []*pipeline.Report, asJSON, all bool) error {
	if asJSON {
		if reports == nil {
			reports = []*pipeline.Report{}
		}
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	for _, r := range reports {
		if !all && !r.HasDeadCode() && r.Error == "" {
			continue
		}
		if err := r.WriteText(w); err != nil {
			return err
		}
	}
	return nil
}

func anyDeadCode(reports []*pipeline.Report) bool {
	for _, r := range reports {
		if r.HasDeadCode() {
			return true
		}
	}
	return false
}

func init() {
	deadcodeCmd.Flags().Bool("fail", false, "Exit with an error when dead code is found")
	RootCmd.AddCommand(deadcodeCmd)
}
