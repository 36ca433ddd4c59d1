package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sa-retail/strukindex/internal/errors"
)

// Meta is the per-year watermark, persisted beside the database. It
// only advances after a scan covered the whole partition, so a crash
// mid-build reprocesses at most one run's worth of files.
type Meta struct {
	// LastRun is when the last successful scan finished (unix seconds).
	LastRun int64 `json:"last_run"`
	// LastMtime is the highest file mtime seen in that scan.
	LastMtime int64 `json:"last_mtime"`
}

// Build states reported in the status file.
const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Status is the observable progress of a build, rewritten periodically
// while a scan runs. Processed counts valid receipt files examined,
// Inserted the rows actually upserted.
type Status struct {
	State          string `json:"state"`
	Year           string `json:"year"`
	Processed      int    `json:"processed"`
	Inserted       int    `json:"inserted"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	UpdatedAt      int64  `json:"updated_at"`
	Error          string `json:"error,omitempty"`
}

// MetaFile tracks watermark and status files for one year partition.
type MetaFile struct {
	dataDir string
	year    string
}

// NewMetaFile creates the tracker for a year under dataDir.
func NewMetaFile(dataDir, year string) *MetaFile {
	return &MetaFile{dataDir: dataDir, year: year}
}

func (m *MetaFile) metaPath() string {
	return filepath.Join(m.dataDir, m.year+".meta.json")
}

func (m *MetaFile) statusPath() string {
	return filepath.Join(m.dataDir, m.year+".status.json")
}

// Load reads the watermark. A missing or corrupt file yields the zero
// watermark, which forces a full rescan rather than failing the build.
func (m *MetaFile) Load() Meta {
	data, err := os.ReadFile(m.metaPath())
	if err != nil {
		return Meta{}
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}
	}
	return meta
}

// Store writes the watermark atomically via rename.
func (m *MetaFile) Store(meta Meta) error {
	if err := writeJSONAtomic(m.metaPath(), meta); err != nil {
		return errors.Wrap(errors.ErrCodeWatermarkWrite, err).
			WithDetail("year", m.year)
	}
	return nil
}

// LoadStatus reads the last published build status, if any.
func (m *MetaFile) LoadStatus() (Status, bool) {
	data, err := os.ReadFile(m.statusPath())
	if err != nil {
		return Status{}, false
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}, false
	}
	return st, true
}

// PublishStatus rewrites the status file. Failures are swallowed; the
// status file is advisory and must never abort a build.
func (m *MetaFile) PublishStatus(st Status) {
	st.Year = m.year
	st.UpdatedAt = time.Now().Unix()
	_ = writeJSONAtomic(m.statusPath(), st)
}

func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
