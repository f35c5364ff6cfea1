package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration, cache and parser",
	Long: `Shows which configuration file is in effect, checks that the report cache
can be written and read, and runs the analyses on a built-in function.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor(current, healthcheck.EffectiveConfigPath())
	},
}

func runDoctor(e *env, configPath string) error {
	result, err := healthcheck.Check(e.cfg, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result.EffectivePath == "" {
		fmt.Fprintln(e.out, "Using config: defaults (run 'gdf init' to create a file)")
	} else {
		fmt.Fprintf(e.out, "Using config: %s (%s)\n", result.EffectivePath, result.EffectiveScope)
	}
	for _, c := range []healthcheck.CheckStatus{result.Cache, result.Analysis} {
		fmt.Fprintf(e.out, "\n%s:\n", c.Name)
		if c.Detail != "" {
			fmt.Fprintf(e.out, "  %s\n", c.Detail)
		}
		fmt.Fprintf(e.out, "  Status: %s %s\n", formatStatusIcon(c.Status), c.Status)
		if c.Error != "" {
			fmt.Fprintf(e.out, "  Error: %s\n", c.Error)
		}
	}

	if result.Failed() {
		return fmt.Errorf("health check failed: one or more checks did not pass")
	}
	return nil
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady:
		return "✓"
	case healthcheck.StatusDisabled:
		return "-"
	case healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
