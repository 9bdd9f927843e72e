package cli

import (
	"time"

	"go.uber.org/zap"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/loader"
	"github.com/toyz/tyx/internal/metadata"
	"github.com/toyz/tyx/internal/parser"
	"github.com/toyz/tyx/internal/utils"
)

// Summary describes the outcome of a Run
type Summary struct {
	PackagesScanned int
	ClassesFound    int
	APIs            int
	Services        int
	Committed       int
	Routes          int
	Events          int
	Duration        time.Duration
}

// Stats returns the summary in the shape DiagnosticSystem.Summary prints
func (s Summary) Stats() map[string]interface{} {
	return map[string]interface{}{
		"Packages scanned": s.PackagesScanned,
		"Classes found":    s.ClassesFound,
		"Apis":             s.APIs,
		"Services":         s.Services,
		"Routes":           s.Routes,
		"Events":           s.Events,
	}
}

// Runner coordinates scanning, loading and committing for the CLI
type Runner struct {
	scanner        *DirectoryScanner
	moduleResolver *ModuleResolver
	diagnostics    *utils.DiagnosticSystem
	log            *zap.Logger
	summary        Summary
}

// NewRunner creates a runner reporting through diagnostics. A nil logger
// disables structured logging.
func NewRunner(diagnostics *utils.DiagnosticSystem, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		scanner:        NewDirectoryScanner(),
		moduleResolver: NewModuleResolver(),
		diagnostics:    diagnostics,
		log:            log,
	}
}

// GetSummary returns the summary of the last Run
func (r *Runner) GetSummary() Summary {
	return r.summary
}

// Run scans the configured directories and loads every annotated class into
// a fresh registry. Scan errors of all packages are reported together.
func (r *Runner) Run(config *Config) (*metadata.Registry, error) {
	startTime := time.Now()
	r.summary = Summary{}

	r.diagnostics.Verbose("Scanning directories: %v", config.Directories)
	if config.ModuleName != "" {
		r.diagnostics.Debug("Using custom module name: %s", config.ModuleName)
	}

	dirs, err := r.scanner.ScanDirectories(config.Directories)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, errors.New(errors.FileSystemErrorCode, "no Go packages found").
			WithContext("directories", config.Directories)
	}

	scanner := parser.NewScanner(parser.WithPrefix(config.Prefix), parser.WithLogger(r.log))
	var multiErr *errors.MultipleErrors
	var packages []*parser.Package
	for _, dir := range dirs {
		pkgPath, err := r.moduleResolver.BuildPackagePath(config.ModuleName, dir)
		if err != nil {
			errors.Collect(&multiErr, err)
			continue
		}
		r.diagnostics.Debug("Scanning %s (%s)", dir, pkgPath)

		pkg, err := scanner.ParseDirectory(dir, pkgPath)
		if err != nil {
			errors.Collect(&multiErr, err)
			continue
		}
		packages = append(packages, pkg)
		r.summary.PackagesScanned++
		r.summary.ClassesFound += len(pkg.Classes)
	}
	if err := multiErr.ErrorOrNil(); err != nil {
		return nil, err
	}

	registry := metadata.NewRegistry(metadata.WithLogger(r.log))
	l := loader.New(registry, loader.WithLogger(r.log))
	l.Add(packages...)
	result, err := l.Load()
	if result != nil {
		r.summary.APIs = result.APIs
		r.summary.Services = result.Services
		r.summary.Committed = result.Committed
	}
	for _, api := range registry.APIs() {
		r.summary.Routes += len(api.Routes)
		r.summary.Events += len(api.Events)
	}
	r.summary.Duration = time.Since(startTime)
	if err != nil {
		return registry, err
	}

	r.diagnostics.Verbose("Loaded %d packages in %s", r.summary.PackagesScanned, r.summary.Duration.Round(time.Millisecond))
	return registry, nil
}
