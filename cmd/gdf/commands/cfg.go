package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/pkg/cfg"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg <file> <function>",
	Short: "Show the control flow graph of a function",
	Long: `Builds the statement-level Control Flow Graph (CFG) of a function in a Go file.
Outputs its nodes, edges, loop count and cyclomatic complexity.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCFG(current, args[0], args[1])
	},
}

func runCFG(e *env, path, function string) error {
	fn, err := lowerFunction(path, function)
	if err != nil {
		return err
	}

	g := cfg.Build(fn)
	if err := g.Validate(); err != nil {
		e.logger.Warn("irregular control flow", "function", fn.Function, "error", err)
	}
	info := cfg.Export(g)

	if e.jsonOutput() {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(e.out, string(data))
		return nil
	}
	printCFGInfo(e.out, info)
	return nil
}

// printCFGInfo prints CFG information in human-readable format.
func printCFGInfo(w io.Writer, info *cfg.CFGInfo) {
	fmt.Fprintf(w, "=== CFG for function: %s ===\n", info.FunctionName)
	fmt.Fprintf(w, "Cyclomatic Complexity: %d\n", info.CyclomaticComplexity)
	fmt.Fprintf(w, "Loops: %d\n", info.Loops)
	fmt.Fprintf(w, "\nNodes (%d):\n", len(info.Nodes))
	for _, n := range info.Nodes {
		text := n.Text
		if n.Unreachable {
			text += "  (unreachable)"
		}
		if n.Line > 0 {
			fmt.Fprintf(w, "  %4d  %-7s line %-4d %s\n", n.ID, n.Kind, n.Line, text)
		} else {
			fmt.Fprintf(w, "  %4d  %-7s           %s\n", n.ID, n.Kind, text)
		}
	}

	fmt.Fprintf(w, "\nEdges (%d):\n", len(info.Edges))
	for _, e := range info.Edges {
		if e.CaseValue != nil {
			fmt.Fprintf(w, "  %d --%s(%d)--> %d\n", e.SourceID, e.Kind, *e.CaseValue, e.TargetID)
			continue
		}
		fmt.Fprintf(w, "  %d --%s--> %d\n", e.SourceID, e.Kind, e.TargetID)
	}
}

func init() {
	RootCmd.AddCommand(cfgCmd)
}
