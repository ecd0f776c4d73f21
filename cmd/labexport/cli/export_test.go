package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labdent/labexport/internal/laborator"
)

type stubExporter struct {
	res  *laborator.Result
	err  error
	reqs []laborator.Request
}

func (s *stubExporter) Export(_ context.Context, req laborator.Request) (*laborator.Result, error) {
	s.reqs = append(s.reqs, req)
	return s.res, s.err
}

func TestNewExportCLIRequiresExporter(t *testing.T) {
	_, err := NewExportCLI(nil)
	require.Error(t, err)
}

func TestExportCLIWritesArchive(t *testing.T) {
	exp := &stubExporter{res: &laborator.Result{
		Kind:     laborator.ResultArchive,
		Archive:  []byte("PK\x05\x06zip"),
		Filename: "export_1700000000000.zip",
		Entries:  []string{"Doctor_Ana.xlsx"},
	}}
	c, err := NewExportCLI(exp)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	var stdout, stderr bytes.Buffer
	code := c.Run(context.Background(), ExportOptions{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		OutDir:    dir,
		Stdout:    &stdout,
		Stderr:    &stderr,
	})
	require.Equal(t, ExitOK, code, stderr.String())

	data, err := os.ReadFile(filepath.Join(dir, "export_1700000000000.zip"))
	require.NoError(t, err)
	assert.Equal(t, exp.res.Archive, data)

	var out struct {
		File    string   `json:"file"`
		Entries []string `json:"entries"`
		Bytes   int      `json:"bytes"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, []string{"Doctor_Ana.xlsx"}, out.Entries)
	assert.Equal(t, len(exp.res.Archive), out.Bytes)

	require.Len(t, exp.reqs, 1)
	require.NotNil(t, exp.reqs[0].Range.End)
	assert.Equal(t, 23, exp.reqs[0].Range.End.Hour())
}

func TestExportCLISummaryAndEmpty(t *testing.T) {
	exp := &stubExporter{res: &laborator.Result{
		Kind:    laborator.ResultSummary,
		Summary: laborator.Summary{OK: true, OrderCount: 3, UsingMock: true},
	}}
	c, err := NewExportCLI(exp)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.Equal(t, ExitOK, c.Run(context.Background(), ExportOptions{Debug: true, Stdout: &stdout}))
	assert.Contains(t, stdout.String(), `"comenziCount": 3`)
	assert.True(t, exp.reqs[0].Debug)

	exp.res = &laborator.Result{Kind: laborator.ResultEmpty, Message: laborator.EmptyMessage}
	stdout.Reset()
	require.Equal(t, ExitOK, c.Run(context.Background(), ExportOptions{Stdout: &stdout}))
	assert.Contains(t, stdout.String(), laborator.EmptyMessage)
}

func TestExportCLIExitCodes(t *testing.T) {
	exp := &stubExporter{err: errors.New("store down")}
	c, err := NewExportCLI(exp)
	require.NoError(t, err)

	var stderr bytes.Buffer
	assert.Equal(t, ExitUsage, c.Run(context.Background(), ExportOptions{StartDate: "yesterday", Stderr: &stderr}))
	assert.Contains(t, stderr.String(), "startDate")
	assert.Empty(t, exp.reqs)

	stderr.Reset()
	assert.Equal(t, ExitFailure, c.Run(context.Background(), ExportOptions{Stderr: &stderr}))
	assert.Contains(t, stderr.String(), "store down")
}
