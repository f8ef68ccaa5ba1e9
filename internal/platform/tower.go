package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// TowerClient shells out to the Seqera Platform tw CLI. Authentication is
// the CLI's own concern: it reads TOWER_ACCESS_TOKEN from the environment
// and fails the invocation when the token is missing or invalid.
type TowerClient struct {
	Path    string // tw binary, default "tw" on PATH
	Timeout time.Duration
}

func (c *TowerClient) Name() string {
	return "tw"
}

func (c *TowerClient) RunsDump(ctx context.Context, req DumpRequest) error {
	if req.Workspace == "" {
		return errors.New("workspace is required")
	}
	if req.RunID == "" {
		return errors.New("run id is required")
	}
	if req.DestPath == "" {
		return errors.New("archive destination is required")
	}

	bin := c.Path
	if bin == "" {
		bin = "tw"
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if c.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, bin, dumpArgs(req)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("tw runs dump (exit %d): %s", exitCodeFromError(err), msg)
		}
		return fmt.Errorf("tw runs dump: %w", err)
	}

	// tw exits zero but writes nothing when the dump is rejected upstream.
	if _, err := os.Stat(req.DestPath); err != nil {
		return fmt.Errorf("tw runs dump produced no archive: %w", err)
	}
	return nil
}

func dumpArgs(req DumpRequest) []string {
	return []string{
		"runs", "dump",
		"-id", req.RunID,
		"-o", req.DestPath,
		"-w", req.Workspace,
	}
}

func exitCodeFromError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 124
	}
	return 1
}
