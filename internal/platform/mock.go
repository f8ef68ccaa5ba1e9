package platform

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MockClient fabricates run archives offline. With a nil Runs map it serves
// a canned successful run for any id; otherwise unknown ids fail the way the
// real CLI does, which makes it usable for end-to-end testing of failure
// handling.
type MockClient struct {
	Runs map[string]MockRun
}

// MockRun holds the two documents a fabricated archive will contain.
type MockRun struct {
	Workflow     map[string]any
	WorkflowLoad map[string]any
}

func (c *MockClient) Name() string {
	return "mock"
}

func (c *MockClient) RunsDump(ctx context.Context, req DumpRequest) error {
	if req.Workspace == "" {
		return errors.New("workspace is required")
	}
	if req.RunID == "" {
		return errors.New("run id is required")
	}
	if req.DestPath == "" {
		return errors.New("archive destination is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	run := defaultMockRun(req)
	if c.Runs != nil {
		known, ok := c.Runs[req.RunID]
		if !ok {
			return fmt.Errorf("run %s not found in workspace %s", req.RunID, req.Workspace)
		}
		run = known
	}

	members := map[string]any{
		"workflow.json":      run.Workflow,
		"workflow-load.json": run.WorkflowLoad,
	}
	if err := writeArchive(req.DestPath, members); err != nil {
		return fmt.Errorf("write mock archive: %w", err)
	}
	return nil
}

func defaultMockRun(req DumpRequest) MockRun {
	now := time.Now().UTC().Format(time.RFC3339)
	return MockRun{
		Workflow: map[string]any{
			"id":          req.RunID,
			"status":      "SUCCEEDED",
			"runName":     "mock_run",
			"projectName": "mock/pipeline",
			"userName":    "mock",
			"submit":      now,
			"start":       now,
			"complete":    now,
			"commandLine": "nextflow run mock/pipeline",
			"params": map[string]any{
				"input":  "samplesheet.csv",
				"outdir": "results",
			},
		},
		WorkflowLoad: map[string]any{
			"cpuEfficiency":    100.0,
			"memoryEfficiency": 100.0,
			"cost":             0.0,
			"peakCpus":         1,
		},
	}
}

func writeArchive(path string, members map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, doc := range members {
		data, err := json.Marshal(doc)
		if err != nil {
			_ = f.Close()
			return err
		}
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: time.Now().UTC(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			_ = f.Close()
			return err
		}
		if _, err := tw.Write(data); err != nil {
			_ = f.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
