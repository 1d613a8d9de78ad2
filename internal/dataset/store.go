package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// File and directory names of the dataset layout.
const (
	MetaFile       = "meta.json"
	IndexFile      = "_index.json"
	HotFile        = "hot.json"
	AuditStatsFile = "audit_stats.json"
	ItemsDir       = "items"
	SearchDir      = "search"
)

// ItemBucketSize is how many consecutive ids share an items subdirectory.
const ItemBucketSize = 100

// Store reads and writes the dataset rooted at a base directory.
type Store struct {
	base   string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for skipped files.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store rooted at base.
func NewStore(base string, opts ...StoreOption) *Store {
	s := &Store{base: base, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Base returns the dataset root.
func (s *Store) Base() string {
	return s.base
}

// Path joins elem onto the dataset root.
func (s *Store) Path(elem ...string) string {
	return filepath.Join(append([]string{s.base}, elem...)...)
}

// ItemPath returns the detail file path of the report with the given id.
func (s *Store) ItemPath(id int) string {
	return s.Path(ItemsDir, strconv.Itoa(id/ItemBucketSize), strconv.Itoa(id)+".json")
}

// SearchPath returns the shard path of a search bucket.
func (s *Store) SearchPath(bucket string) string {
	return s.Path(SearchDir, bucket+".json")
}

// EnsureLayout creates the dataset root and its fixed subdirectories.
func (s *Store) EnsureLayout() error {
	for _, dir := range []string{s.base, s.Path(ItemsDir), s.Path(SearchDir)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ReadMeta returns the persisted meta. A missing file yields the default
// meta for buildID. A corrupt file yields the default meta together with an
// error wrapping ErrCorruptMeta.
func (s *Store) ReadMeta(buildID string) (model.DatasetMeta, error) {
	def := model.NewDatasetMeta(buildID)

	data, err := os.ReadFile(s.Path(MetaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("failed to read meta: %w", err)
	}

	var meta model.DatasetMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return def, fmt.Errorf("%w: %w", ErrCorruptMeta, err)
	}
	return meta, nil
}

// Load reads every detail file under items into a new Set. Files that
// cannot be read or decoded, or that carry no valid id, are logged and
// skipped.
func (s *Store) Load() (*Set, error) {
	set := NewSet()

	dirs, err := os.ReadDir(s.Path(ItemsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return set, fmt.Errorf("failed to list items: %w", err)
	}

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		dirPath := s.Path(ItemsDir, dir.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			s.logger.Warn("skipping unreadable items directory", "path", dirPath, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			path := filepath.Join(dirPath, f.Name())
			r, err := readReport(path)
			if err != nil {
				s.logger.Warn("skipping unreadable detail file", "path", path, "error", err)
				continue
			}
			set.Put(r)
		}
	}
	return set, nil
}

func readReport(path string) (*model.Report, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from a directory listing under the dataset root
	if err != nil {
		return nil, err
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.ID <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidRecord, r.ID)
	}
	return &r, nil
}

// WriteJSON replaces path with the JSON encoding of v. The encoding is two
// space indented, leaves HTML characters unescaped and ends with a newline.
// The file is written to a temporary sibling and renamed into place.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // dataset files are served publicly
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
