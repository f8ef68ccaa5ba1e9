package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"runmeta/internal/audit"
	"runmeta/internal/config"
	"runmeta/internal/extract"
	"runmeta/internal/logging"
	"runmeta/internal/platform"
)

const appName = "runmeta"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var workspace, runID, output, logLevel, configPath string
	fs.StringVar(&workspace, "w", "", "Seqera Platform workspace name")
	fs.StringVar(&workspace, "workspace", "", "Seqera Platform workspace name")
	fs.StringVar(&runID, "id", "", "Run identifier")
	fs.StringVar(&runID, "run-id", "", "Run identifier")
	fs.StringVar(&output, "o", "", "Output path for the metadata JSON file")
	fs.StringVar(&output, "output", "", "Output path for the metadata JSON file")
	fs.StringVar(&logLevel, "l", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&configPath, "c", "", "Optional YAML config file")
	fs.StringVar(&configPath, "config", "", "Optional YAML config file")

	adapterName := fs.String("adapter", "tw", "Platform client: tw or mock")
	twPath := fs.String("tw-path", "", "Path to the tw binary (default: tw on PATH)")
	timeout := fs.Duration("timeout", 0, "Optional timeout for the tw call (e.g. 5m)")
	auditDB := fs.String("audit-db", "", "Path to the audit SQLite DB")
	noAudit := fs.Bool("no-audit", false, "Disable the local audit log")
	writeDiff := fs.Bool("diff", false, "Write <output>.diff when overwriting a changed artifact")
	archiveDir := fs.String("archive-dir", "", "Keep the downloaded run archive in this directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: extract pipeline run metadata from the Seqera Platform\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s -w <workspace> -id <run_id> -o <output.json> [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "TOWER_ACCESS_TOKEN must be set; the tw CLI reads it for authentication.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := logging.Init(logLevel); err != nil {
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if workspace == "" {
		workspace = cfg.Workspace
	}
	if workspace == "" {
		return fmt.Errorf("workspace is required (-w)")
	}
	if runID == "" {
		return fmt.Errorf("run identifier is required (-id)")
	}
	if output == "" {
		return fmt.Errorf("output path is required (-o)")
	}

	bin := *twPath
	if bin == "" {
		bin = cfg.Tower.Path
	}
	twTimeout := *timeout
	if twTimeout == 0 && cfg.Tower.TimeoutSeconds > 0 {
		twTimeout = time.Duration(cfg.Tower.TimeoutSeconds) * time.Second
	}

	var client platform.Client
	switch *adapterName {
	case "tw":
		client = &platform.TowerClient{Path: bin, Timeout: twTimeout}
	case "mock":
		client = &platform.MockClient{}
	default:
		return fmt.Errorf("unknown adapter: %s", *adapterName)
	}

	var logger *audit.Logger
	if !*noAudit {
		dbPath := *auditDB
		if dbPath == "" {
			dbPath = cfg.AuditDB
		}
		logger = audit.NewLogger(dbPath)
	}

	startPayload := map[string]any{
		"workspace": workspace,
		"run_id":    runID,
		"output":    output,
		"adapter":   client.Name(),
	}
	if err := logger.LogEvent("extract_started", startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	keepDir := *archiveDir
	if keepDir == "" {
		keepDir = cfg.ArchiveDir
	}

	ctx := context.Background()
	res, runErr := extract.Run(ctx, extract.Options{
		Workspace:    workspace,
		RunID:        runID,
		OutputPath:   output,
		Client:       client,
		WorkflowKeys: cfg.Keys.Workflow,
		LoadKeys:     cfg.Keys.WorkflowLoad,
		ArchiveDir:   keepDir,
		WriteDiff:    *writeDiff || cfg.Diff,
	})

	finishPayload := map[string]any{
		"workspace": workspace,
		"run_id":    runID,
		"output":    output,
	}
	if res != nil {
		finishPayload["fields"] = res.Fields
		finishPayload["status"] = res.Status
		if res.ArchivePath != "" {
			finishPayload["archive"] = res.ArchivePath
		}
		if res.DiffPath != "" {
			finishPayload["diff"] = res.DiffPath
		}
	}
	if runErr != nil {
		finishPayload["error"] = runErr.Error()
	}
	if err := logger.LogEvent("extract_finished", finishPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(os.Stdout, "Wrote run metadata: %s\n", res.OutputPath)
	if res.DiffPath != "" {
		fmt.Fprintf(os.Stdout, "Diff: %s\n", res.DiffPath)
	}
	return nil
}
