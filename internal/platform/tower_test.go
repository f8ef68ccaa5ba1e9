package platform

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTowerClientValidatesRequest(t *testing.T) {
	t.Parallel()

	c := &TowerClient{}
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "run.tar.gz")

	cases := []struct {
		name string
		req  DumpRequest
	}{
		{"missing workspace", DumpRequest{RunID: "123", DestPath: dest}},
		{"missing run id", DumpRequest{Workspace: "ws", DestPath: dest}},
		{"missing dest", DumpRequest{Workspace: "ws", RunID: "123"}},
	}
	for _, tc := range cases {
		if err := c.RunsDump(ctx, tc.req); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestDumpArgs(t *testing.T) {
	t.Parallel()

	got := dumpArgs(DumpRequest{
		Workspace: "myworkspace",
		RunID:     "12345",
		DestPath:  "/tmp/12345.tar.gz",
	})
	want := []string{"runs", "dump", "-id", "12345", "-o", "/tmp/12345.tar.gz", "-w", "myworkspace"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTowerClientMissingBinary(t *testing.T) {
	t.Parallel()

	c := &TowerClient{Path: filepath.Join(t.TempDir(), "no-such-tw")}
	err := c.RunsDump(context.Background(), DumpRequest{
		Workspace: "ws",
		RunID:     "123",
		DestPath:  filepath.Join(t.TempDir(), "run.tar.gz"),
	})
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
