package tabular

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ParquetExtensions is the extension set recognised for columnar partitions.
var ParquetExtensions = []string{".parquet", ".snappy.parquet"}

// ListPartitions returns the files in dir whose names end in one of exts,
// sorted by file name. A missing dir yields an error matching fs.ErrNotExist.
func ListPartitions(dir string, exts ...string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, fs.ErrNotExist)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if hasExtension(entry.Name(), exts) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

func hasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
