package index

import (
	"os"
	"path/filepath"
)

// DirEntry is one candidate file from a partition directory.
type DirEntry struct {
	Name  string
	Path  string
	Mtime int64
}

// listReceiptDir reads a partition directory in one pass. Entries whose
// metadata cannot be read (deleted between list and stat) are dropped;
// subdirectories are ignored, the layout is flat.
func listReceiptDir(dir string) ([]DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, DirEntry{
			Name:  entry.Name(),
			Path:  filepath.Join(dir, entry.Name()),
			Mtime: info.ModTime().Unix(),
		})
	}
	return out, nil
}
