package platform

import "context"

// Client downloads run dumps from a workflow orchestration platform.
type Client interface {
	Name() string
	RunsDump(ctx context.Context, req DumpRequest) error
}

// DumpRequest identifies one run and where to place its archive.
type DumpRequest struct {
	Workspace string
	RunID     string
	DestPath  string
}
