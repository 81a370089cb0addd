package importer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// readExport returns the contents of path, gunzipping files ending in .gz.
func readExport(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return io.ReadAll(f)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
