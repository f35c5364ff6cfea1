package commands

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gdf configuration interactively",
	Long: `Guides you through setting up gdf configuration step by step and saves it
to the global (~/.gdf/config.yaml) or project (./.gdf/config.yaml) file.`,
	Args: cobra.NoArgs,
	// init must work even when the existing configuration is invalid
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		current = defaultEnv(cmd)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		answers := defaultAnswers()
		if err := askInit(&answers); err != nil {
			return err
		}
		return runInit(current, answers)
	},
}

// initAnswers holds what the interactive form collects.
type initAnswers struct {
	Scope        string
	LogLevel     string
	OutputFormat config.OutputFormat
	CacheEnabled bool
	IncludeTests bool
	Exclude      string
}

func defaultAnswers() initAnswers {
	d := config.DefaultConfig()
	return initAnswers{
		Scope:        "project",
		LogLevel:     d.LogLevel,
		OutputFormat: d.OutputFormat,
		CacheEnabled: d.CacheEnabled,
		IncludeTests: d.IncludeTests,
	}
}

func askInit(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Description("Messages below this level are not printed").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.LogLevel),
			huh.NewSelect[config.OutputFormat]().
				Title("Output format").
				Options(
					huh.NewOption("Text", config.FormatText),
					huh.NewOption("JSON", config.FormatJSON),
				).
				Value(&a.OutputFormat),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Cache analysis reports?").
				Description("Reports are keyed by file content and reused while it is unchanged").
				Value(&a.CacheEnabled),
			huh.NewConfirm().
				Title("Include _test.go files when scanning?").
				Value(&a.IncludeTests),
			huh.NewInput().
				Title("Exclude patterns (optional, comma separated)").
				Description("gitignore syntax, e.g. gen/, *_mock.go").
				Placeholder("optional").
				Validate(validateExclude).
				Value(&a.Exclude),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Options(
					huh.NewOption("Project (./.gdf/config.yaml)", "project"),
					huh.NewOption("Global (~/.gdf/config.yaml)", "global"),
				).
				Value(&a.Scope),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	return nil
}

func validateExclude(s string) error {
	for _, p := range splitPatterns(s) {
		if _, err := path.Match(strings.Trim(p, "!/"), ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return nil
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildConfig turns form answers into a validated configuration.
func buildConfig(a initAnswers) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = a.LogLevel
	cfg.OutputFormat = a.OutputFormat
	cfg.CacheEnabled = a.CacheEnabled
	cfg.IncludeTests = a.IncludeTests
	cfg.Exclude = splitPatterns(a.Exclude)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configPath(scope string) (string, error) {
	switch scope {
	case "global":
		return config.GlobalConfigFilePath(), nil
	case "project", "":
		return config.ProjectConfigFilePath(), nil
	}
	return "", fmt.Errorf("unknown config scope %q", scope)
}

func runInit(e *env, a initAnswers) error {
	cfg, err := buildConfig(a)
	if err != nil {
		return err
	}
	dest, err := configPath(a.Scope)
	if err != nil {
		return err
	}
	if err := cfg.Save(dest); err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Configuration saved to %s\n", dest)
	fmt.Fprintf(e.out, "\nConfig Scope: %s\n", a.Scope)
	fmt.Fprintf(e.out, "  log level:     %s\n", cfg.LogLevel)
	fmt.Fprintf(e.out, "  output format: %s\n", cfg.OutputFormat)
	fmt.Fprintf(e.out, "  cache:         %t (%s)\n", cfg.CacheEnabled, cfg.CacheDir)
	fmt.Fprintf(e.out, "  include tests: %t\n", cfg.IncludeTests)
	if len(cfg.Exclude) > 0 {
		fmt.Fprintf(e.out, "  exclude:       %s\n", strings.Join(cfg.Exclude, ", "))
	}
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
