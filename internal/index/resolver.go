// Package index builds and maintains the receipt index: scanning year
// partitions on disk, writing batches to the store, tracking per-year
// watermarks, and deriving searchable content in the background.
package index

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sa-retail/strukindex/internal/errors"
)

const (
	// LiveDirName holds the current year's receipts.
	LiveDirName = "live"
	// ArchiveDirPrefix prefixes frozen per-year directories,
	// e.g. archive-2024.
	ArchiveDirPrefix = "archive-"
)

var archiveDirPattern = regexp.MustCompile(`^archive-(\d{4})$`)

// Resolver maps a year to the directory holding that year's receipt
// files under the configured base path.
type Resolver struct {
	basePath string
	now      func() time.Time
}

// NewResolver creates a resolver rooted at basePath.
func NewResolver(basePath string) *Resolver {
	return &Resolver{basePath: basePath, now: time.Now}
}

// CurrentYear returns the wall-clock year as a 4-digit string.
func (r *Resolver) CurrentYear() string {
	return strconv.Itoa(r.now().Year())
}

// Resolve returns the directory for a year. The current year lives in
// live/; any other year in archive-<year>/. A current-year archive
// directory takes precedence when live/ is absent, which happens
// briefly during the year rollover.
func (r *Resolver) Resolve(year string) (string, error) {
	var candidates []string
	if year == r.CurrentYear() {
		candidates = []string{
			filepath.Join(r.basePath, LiveDirName),
			filepath.Join(r.basePath, ArchiveDirPrefix+year),
		}
	} else {
		candidates = []string{
			filepath.Join(r.basePath, ArchiveDirPrefix+year),
		}
	}

	for _, dir := range candidates {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", errors.New(errors.ErrCodeYearDirNotFound,
		"no receipt directory for year", nil).
		WithDetail("year", year).
		WithDetail("base_path", r.basePath)
}

// Years lists every year with a receipt directory, newest first. The
// current year is included whenever live/ exists.
func (r *Resolver) Years() ([]string, error) {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBasePathAbsent, err).
			WithDetail("base_path", r.basePath)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if entry.Name() == LiveDirName {
			seen[r.CurrentYear()] = true
			continue
		}
		if m := archiveDirPattern.FindStringSubmatch(entry.Name()); m != nil {
			seen[m[1]] = true
		}
	}

	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return years, nil
}
