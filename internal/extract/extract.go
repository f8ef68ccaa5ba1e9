package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"runmeta/internal/archive"
	"runmeta/internal/metadata"
	"runmeta/internal/platform"
)

const (
	workflowMember = "workflow.json"
	loadMember     = "workflow-load.json"
)

// Options configures one extraction.
type Options struct {
	Workspace  string
	RunID      string
	OutputPath string
	Client     platform.Client

	// Key selections; nil means the defaults from internal/metadata.
	WorkflowKeys []string
	LoadKeys     []string

	// ArchiveDir keeps the downloaded run dump instead of a temp dir that
	// is removed after use.
	ArchiveDir string

	// WriteDiff writes <output>.diff when overwriting a previous artifact
	// whose content changed.
	WriteDiff bool
}

// Result describes a completed extraction.
type Result struct {
	OutputPath  string
	ArchivePath string // set only when the archive was kept
	DiffPath    string // set only when a diff was written
	Fields      int
	Status      string
}

// Run downloads the run dump, selects the metadata fields, and writes the
// JSON artifact. On any error the output file is left untouched: absence of
// the artifact is the failure signal to orchestrating callers.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Workspace == "" {
		return nil, errors.New("workspace is required")
	}
	if opts.RunID == "" {
		return nil, errors.New("run id is required")
	}
	if opts.OutputPath == "" {
		return nil, errors.New("output path is required")
	}
	if opts.Client == nil {
		return nil, errors.New("platform client is required")
	}

	dir := opts.ArchiveDir
	keepArchive := dir != ""
	if keepArchive {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	} else {
		tmp, err := os.MkdirTemp("", "runmeta-*")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		dir = tmp
		defer func() {
			_ = os.RemoveAll(tmp)
		}()
	}
	archivePath := filepath.Join(dir, opts.RunID+".tar.gz")

	log.Info().
		Str("workspace", opts.Workspace).
		Str("run_id", opts.RunID).
		Str("client", opts.Client.Name()).
		Msg("fetching run dump")
	if err := opts.Client.RunsDump(ctx, platform.DumpRequest{
		Workspace: opts.Workspace,
		RunID:     opts.RunID,
		DestPath:  archivePath,
	}); err != nil {
		return nil, err
	}

	log.Info().Msg("extracting workflow metadata")
	members, err := archive.ExtractJSON(archivePath, workflowMember, loadMember)
	if err != nil {
		return nil, err
	}
	workflow, ok := members[workflowMember]
	if !ok {
		return nil, fmt.Errorf("run archive missing %s", workflowMember)
	}
	load, ok := members[loadMember]
	if !ok {
		return nil, fmt.Errorf("run archive missing %s", loadMember)
	}

	workflowKeys := opts.WorkflowKeys
	if workflowKeys == nil {
		workflowKeys = metadata.DefaultWorkflowKeys()
	}
	loadKeys := opts.LoadKeys
	if loadKeys == nil {
		loadKeys = metadata.DefaultLoadKeys()
	}

	log.Info().Msg("selecting metadata fields")
	record := metadata.Merge(
		metadata.Select(load, loadKeys),
		metadata.Select(workflow, workflowKeys),
	)

	diffText, err := diffAgainstPrevious(opts.OutputPath, record)
	if err != nil {
		return nil, err
	}

	log.Info().Str("output", opts.OutputPath).Msg("writing run metadata")
	if err := metadata.Write(opts.OutputPath, record); err != nil {
		return nil, err
	}

	res := &Result{
		OutputPath: opts.OutputPath,
		Fields:     len(record),
	}
	if keepArchive {
		res.ArchivePath = archivePath
	}
	if status, ok := record["status"].(string); ok {
		res.Status = status
	}

	if diffText != "" {
		log.Debug().Str("output", opts.OutputPath).Msg("previous artifact differs")
		if opts.WriteDiff {
			diffPath := opts.OutputPath + ".diff"
			if err := os.WriteFile(diffPath, []byte(diffText), 0o644); err != nil {
				return nil, fmt.Errorf("write diff: %w", err)
			}
			res.DiffPath = diffPath
		}
	}

	return res, nil
}

// diffAgainstPrevious returns the unified diff of an existing artifact at
// path against the record about to replace it, or "" when there is no
// previous artifact or the content is equivalent.
func diffAgainstPrevious(path string, record metadata.Record) (string, error) {
	oldData, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read previous artifact: %w", err)
	}
	newData, err := metadata.Encode(record)
	if err != nil {
		return "", err
	}
	return metadata.Diff(oldData, newData, filepath.Base(path))
}
