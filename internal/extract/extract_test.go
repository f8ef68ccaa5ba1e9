package extract

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"runmeta/internal/metadata"
	"runmeta/internal/platform"
)

func TestRunWritesMetadataArtifact(t *testing.T) {
	output := filepath.Join(t.TempDir(), "workflow_details.json")

	res, err := Run(context.Background(), Options{
		Workspace:  "myworkspace",
		RunID:      "12345",
		OutputPath: output,
		Client:     &platform.MockClient{},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.OutputPath != output {
		t.Fatalf("unexpected output path %s", res.OutputPath)
	}
	if res.Status != "SUCCEEDED" {
		t.Fatalf("expected SUCCEEDED status, got %q", res.Status)
	}
	if res.ArchivePath != "" {
		t.Fatalf("expected temp archive to be discarded, got %s", res.ArchivePath)
	}

	rec, err := metadata.Load(output)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if rec["status"] != "SUCCEEDED" {
		t.Fatalf("expected status field, got %v", rec["status"])
	}
	params, ok := rec["params"].(map[string]any)
	if !ok {
		t.Fatalf("expected params mapping, got %T", rec["params"])
	}
	if params["input"] != "samplesheet.csv" {
		t.Fatalf("unexpected params: %v", params)
	}
	if rec["params.input"] != "samplesheet.csv" {
		t.Fatalf("expected nested selection params.input, got %v", rec["params.input"])
	}
	if _, ok := rec["cpuEfficiency"]; !ok {
		t.Fatalf("expected cpuEfficiency from workflow-load.json")
	}
}

func TestRunUnknownRunLeavesNoOutput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "workflow_details.json")

	_, err := Run(context.Background(), Options{
		Workspace:  "myworkspace",
		RunID:      "99999",
		OutputPath: output,
		Client:     &platform.MockClient{Runs: map[string]platform.MockRun{}},
	})
	if err == nil {
		t.Fatalf("expected error for unknown run")
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err: %v", statErr)
	}
}

func TestRunUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	// Parent of the output path is a regular file.
	output := filepath.Join(blocker, "out.json")

	_, err := Run(context.Background(), Options{
		Workspace:  "myworkspace",
		RunID:      "12345",
		OutputPath: output,
		Client:     &platform.MockClient{},
	})
	if err == nil {
		t.Fatalf("expected error for unwritable output path")
	}
}

// partialDumpClient writes an archive containing only workflow-load.json.
type partialDumpClient struct{}

func (c *partialDumpClient) Name() string { return "partial" }

func (c *partialDumpClient) RunsDump(ctx context.Context, req platform.DumpRequest) error {
	f, err := os.Create(req.DestPath)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	content := []byte(`{"cost": 1.0}`)
	if err := tw.WriteHeader(&tar.Header{
		Name: "workflow-load.json",
		Mode: 0o644,
		Size: int64(len(content)),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(content); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}

func TestRunMissingArchiveMember(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.json")

	_, err := Run(context.Background(), Options{
		Workspace:  "myworkspace",
		RunID:      "12345",
		OutputPath: output,
		Client:     &partialDumpClient{},
	})
	if err == nil {
		t.Fatalf("expected error for archive missing workflow.json")
	}
	if !strings.Contains(err.Error(), "workflow.json") {
		t.Fatalf("expected error to name the missing member, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err: %v", statErr)
	}
}

func TestRunKeepsArchiveWhenRequested(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, "dumps")
	output := filepath.Join(dir, "out.json")

	res, err := Run(context.Background(), Options{
		Workspace:  "myworkspace",
		RunID:      "12345",
		OutputPath: output,
		Client:     &platform.MockClient{},
		ArchiveDir: archiveDir,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ArchivePath != filepath.Join(archiveDir, "12345.tar.gz") {
		t.Fatalf("unexpected archive path %s", res.ArchivePath)
	}
	if _, err := os.Stat(res.ArchivePath); err != nil {
		t.Fatalf("expected archive to be kept: %v", err)
	}
}

func TestRunIdempotentOverwriteNoDiff(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.json")
	opts := Options{
		Workspace:  "myworkspace",
		RunID:      "12345",
		OutputPath: output,
		Client: &platform.MockClient{Runs: map[string]platform.MockRun{
			"12345": {
				Workflow:     map[string]any{"status": "SUCCEEDED"},
				WorkflowLoad: map[string]any{"cost": 2.0},
			},
		}},
		WriteDiff: true,
	}

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read first output: %v", err)
	}

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read second output: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected identical content across runs")
	}
	if res.DiffPath != "" {
		t.Fatalf("expected no diff for unchanged content, got %s", res.DiffPath)
	}
	if _, err := os.Stat(output + ".diff"); !os.IsNotExist(err) {
		t.Fatalf("expected no diff file, stat err: %v", err)
	}
}

func TestRunWritesDiffOnChange(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.json")
	client := &platform.MockClient{Runs: map[string]platform.MockRun{
		"12345": {
			Workflow:     map[string]any{"status": "RUNNING"},
			WorkflowLoad: map[string]any{"cost": 2.0},
		},
	}}
	opts := Options{
		Workspace:  "myworkspace",
		RunID:      "12345",
		OutputPath: output,
		Client:     client,
		WriteDiff:  true,
	}

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}

	client.Runs["12345"] = platform.MockRun{
		Workflow:     map[string]any{"status": "SUCCEEDED"},
		WorkflowLoad: map[string]any{"cost": 2.0},
	}
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.DiffPath != output+".diff" {
		t.Fatalf("expected diff path, got %q", res.DiffPath)
	}
	data, err := os.ReadFile(res.DiffPath)
	if err != nil {
		t.Fatalf("read diff: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty diff")
	}
}

func TestRunValidatesOptions(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		opts Options
	}{
		{"missing workspace", Options{RunID: "1", OutputPath: "o", Client: &platform.MockClient{}}},
		{"missing run id", Options{Workspace: "w", OutputPath: "o", Client: &platform.MockClient{}}},
		{"missing output", Options{Workspace: "w", RunID: "1", Client: &platform.MockClient{}}},
		{"missing client", Options{Workspace: "w", RunID: "1", OutputPath: "o"}},
	}
	for _, tc := range cases {
		if _, err := Run(ctx, tc.opts); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
