// Package cli implements the labexport subcommands that run without the HTTP
// server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/labdent/labexport/internal/laborator"
)

// Exit codes returned by ExportCLI.Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExportOptions mirror the HTTP request fields plus the output directory.
type ExportOptions struct {
	StartDate string
	EndDate   string
	Debug     bool
	OutDir    string
	Stdout    io.Writer
	Stderr    io.Writer
}

// ExportCLI runs one export locally and writes the archive to disk.
type ExportCLI struct {
	exporter laborator.Exporter
}

// NewExportCLI constructs the local export command.
func NewExportCLI(exporter laborator.Exporter) (*ExportCLI, error) {
	if exporter == nil {
		return nil, fmt.Errorf("export cli: exporter required")
	}
	return &ExportCLI{exporter: exporter}, nil
}

// Run executes the export and returns a process exit code.
func (c *ExportCLI) Run(ctx context.Context, opts ExportOptions) int {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	req, err := laborator.ParseRequest(laborator.RawRequest{
		StartDate: opts.StartDate,
		EndDate:   opts.EndDate,
		Debug:     laborator.Flag(opts.Debug),
	})
	if err != nil {
		fmt.Fprintf(stderr, "invalid request: %v\n", err)
		return ExitUsage
	}
	res, err := c.exporter.Export(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "export failed: %v\n", err)
		return ExitFailure
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	switch res.Kind {
	case laborator.ResultSummary:
		_ = enc.Encode(res.Summary)
		return ExitOK
	case laborator.ResultEmpty:
		_ = enc.Encode(map[string]string{"message": res.Message})
		return ExitOK
	}

	dir := opts.OutDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		fmt.Fprintf(stderr, "create output dir: %v\n", err)
		return ExitFailure
	}
	path := filepath.Join(dir, res.Filename)
	if err := os.WriteFile(path, res.Archive, 0o640); err != nil {
		fmt.Fprintf(stderr, "write archive: %v\n", err)
		return ExitFailure
	}
	_ = enc.Encode(map[string]any{
		"file":    path,
		"entries": res.Entries,
		"bytes":   len(res.Archive),
	})
	return ExitOK
}
