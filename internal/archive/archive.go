package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"

	"runmeta/internal/metadata"
)

// ExtractJSON reads a .tar.gz run dump and decodes the named members as
// JSON records. The result holds an entry per member that was found;
// callers decide whether a missing member is an error.
func ExtractJSON(archivePath string, names ...string) (map[string]metadata.Record, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open run archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read run archive: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	out := make(map[string]metadata.Record, len(names))
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read run archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		// Members may carry a leading "./" depending on how the
		// archive was produced.
		name := path.Clean(hdr.Name)
		if _, ok := wanted[name]; !ok {
			continue
		}
		var rec metadata.Record
		if err := json.NewDecoder(tr).Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		out[name] = rec
		if len(out) == len(wanted) {
			break
		}
	}
	return out, nil
}
