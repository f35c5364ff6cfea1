// Package healthcheck verifies that gdf can run in the current environment:
// which configuration file is in effect, whether the report cache is usable
// and whether the Go parser lowers and analyses a known function.
package healthcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-dataflow/internal/config"
	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/cache"
	"github.com/l3aro/go-dataflow/pkg/pipeline"
)

// Status values of a Check.
const (
	StatusReady    = "ready"
	StatusDisabled = "disabled"
	StatusError    = "error"
)

// CheckStatus is the outcome of one check.
type CheckStatus struct {
	Name   string
	Detail string
	Status string
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	EffectivePath  string
	EffectiveScope string // "global", "project" or "" when only defaults apply
	Cache          CheckStatus
	Analysis       CheckStatus
}

// Failed reports whether any check ended in an error.
func (r *HealthCheckResult) Failed() bool {
	return r.Cache.Status == StatusError || r.Analysis.Status == StatusError
}

// Check performs a health check against the given config. effectivePath is
// the config file actually in use, empty when only defaults apply.
func Check(cfg *config.Config, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &HealthCheckResult{
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
		Cache:          checkCache(cfg),
		Analysis:       checkAnalysis(),
	}, nil
}

// EffectiveConfigPath returns the configuration file Load gives the highest
// priority to, or "" when neither the project nor the global file exists.
func EffectiveConfigPath() string {
	for _, path := range []string{config.ProjectConfigFilePath(), config.GlobalConfigFilePath()} {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".gdf")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

// checkCache makes sure the cache directory is writable and the persisted
// cache, if any, decodes.
func checkCache(cfg *config.Config) CheckStatus {
	status := CheckStatus{Name: "report cache", Detail: cfg.CacheFile()}
	if !cfg.CacheEnabled {
		status.Status = StatusDisabled
		return status
	}

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot create %s: %v", cfg.CacheDir, err)
		return status
	}
	probe, err := os.CreateTemp(cfg.CacheDir, ".probe-*")
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("%s is not writable: %v", cfg.CacheDir, err)
		return status
	}
	probe.Close()
	os.Remove(probe.Name())

	reports := cache.New(cache.Options[pipeline.Report]{MaxSize: cfg.MaxCacheEntries})
	if err := reports.LoadFromFile(cfg.CacheFile()); err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("unreadable cache file: %v", err)
		return status
	}
	status.Status = StatusReady
	status.Detail = fmt.Sprintf("%s (%d entries)", cfg.CacheFile(), reports.Len())
	return status
}

const probeSource = `package probe

func probe(x int) int {
	a := 1
	if a > 2 {
		x = 3
	}
	return x
}
`

// checkAnalysis runs the whole pipeline on a function with one known dead
// statement.
func checkAnalysis() CheckStatus {
	status := CheckStatus{Name: "analysis"}
	rep, err := pipeline.New(pipeline.WithLogger(log.Discard())).AnalyzeSource("probe.go", []byte(probeSource), "probe")
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	if len(rep.DeadCode) != 1 || rep.DeadCode[0].Text != "x = 3" {
		status.Status = StatusError
		status.Error = fmt.Sprintf("expected one dead statement in the probe function, got %d", len(rep.DeadCode))
		return status
	}
	status.Status = StatusReady
	status.Detail = fmt.Sprintf("%d statements lowered, dead code found at line %d", rep.Statements, rep.DeadCode[0].Line)
	return status
}
