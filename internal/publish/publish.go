// Package publish writes the public artifacts of the dataset.
//
// Every artifact is a pure projection of the merged record set and is
// rewritten whole on each run. A failed write is recorded and the remaining
// artifacts are still attempted. meta.json is written last so that a run
// only advances the watermark after its data files were attempted.
package publish

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/openblacklist/blacklist-etl/internal/audit"
	"github.com/openblacklist/blacklist-etl/internal/dataset"
	"github.com/openblacklist/blacklist-etl/internal/model"
)

// DefaultHotListSize is the number of entries kept in hot.json.
const DefaultHotListSize = 50

// Publisher writes artifacts into a dataset Store.
type Publisher struct {
	store   *dataset.Store
	hotSize int
	buildID string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithHotListSize sets how many entries hot.json keeps.
func WithHotListSize(n int) Option {
	return func(p *Publisher) {
		p.hotSize = n
	}
}

// WithBuildID sets the run identifier stamped into meta.json.
func WithBuildID(id string) Option {
	return func(p *Publisher) {
		p.buildID = id
	}
}

// WithClock sets the clock used for the watermark and stats timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a Publisher writing into store.
func New(store *dataset.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		hotSize: DefaultHotListSize,
		buildID: "local",
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes every artifact derived from set. Detail files of ids in
// skipped are left untouched. It returns the meta it wrote and one result
// per artifact.
func (p *Publisher) Publish(set *dataset.Set, skipped map[int]bool) (model.DatasetMeta, []model.ArtifactResult) {
	now := p.now().UTC()
	reports := set.Sorted()

	var results []model.ArtifactResult
	record := func(name, path string, err error) {
		res := model.ArtifactResult{Name: name, Path: p.rel(path)}
		if err != nil {
			res.Error = err.Error()
			p.logger.Error("failed to write artifact", "artifact", name, "path", path, "error", err)
		}
		results = append(results, res)
	}

	for _, r := range reports {
		if skipped[r.ID] {
			continue
		}
		path := p.store.ItemPath(r.ID)
		record(fmt.Sprintf("item:%d", r.ID), path, dataset.WriteJSON(path, r))
	}

	shards := SearchShards(reports)
	for _, bucket := range sortedKeys(shards) {
		path := p.store.SearchPath(bucket)
		record("search:"+bucket, path, dataset.WriteJSON(path, shards[bucket]))
	}
	for _, bucket := range p.staleShards(shards) {
		path := p.store.SearchPath(bucket)
		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			record("search:"+bucket, path, fmt.Errorf("failed to remove stale shard: %w", err))
			continue
		}
		p.logger.Debug("removed stale search shard", "bucket", bucket)
	}

	indexPath := p.store.Path(dataset.IndexFile)
	record("index", indexPath, dataset.WriteJSON(indexPath, Index(reports)))

	hotPath := p.store.Path(dataset.HotFile)
	record("hot", hotPath, dataset.WriteJSON(hotPath, HotList(reports, p.hotSize)))

	statsPath := p.store.Path(dataset.AuditStatsFile)
	record("audit_stats", statsPath, dataset.WriteJSON(statsPath, Stats(reports, now)))

	meta := model.DatasetMeta{
		LastUpdated: now,
		TotalCount:  len(reports),
		Version:     model.DatasetVersion,
		BuildID:     p.buildID,
	}
	metaPath := p.store.Path(dataset.MetaFile)
	record("meta", metaPath, dataset.WriteJSON(metaPath, meta))

	return meta, results
}

// staleShards returns the buckets with a shard file on disk but no entries
// in shards.
func (p *Publisher) staleShards(shards map[string][]model.SearchEntry) []string {
	entries, err := os.ReadDir(p.store.Path(dataset.SearchDir))
	if err != nil {
		return nil
	}
	var stale []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		bucket := strings.TrimSuffix(name, ".json")
		if _, ok := shards[bucket]; !ok {
			stale = append(stale, bucket)
		}
	}
	return stale
}

func (p *Publisher) rel(path string) string {
	if rel, err := filepath.Rel(p.store.Base(), path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// SearchShards groups the search projection of reports by name bucket.
// Entries keep the order of reports.
func SearchShards(reports []*model.Report) map[string][]model.SearchEntry {
	shards := make(map[string][]model.SearchEntry)
	for _, r := range reports {
		b := Bucket(r.Name)
		shards[b] = append(shards[b], model.NewSearchEntry(r))
	}
	return shards
}

// Index returns the id and update time of every report.
func Index(reports []*model.Report) []model.IndexEntry {
	out := make([]model.IndexEntry, 0, len(reports))
	for _, r := range reports {
		out = append(out, model.IndexEntry{ID: r.ID, Updated: r.UpdatedAt.Unix()})
	}
	return out
}

// HotList returns at most size entries ordered by most recent update, then
// most recent creation, then ascending id.
func HotList(reports []*model.Report, size int) []model.SearchEntry {
	sorted := slices.Clone(reports)
	slices.SortStableFunc(sorted, func(a, b *model.Report) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if size >= 0 && len(sorted) > size {
		sorted = sorted[:size]
	}

	out := make([]model.SearchEntry, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, model.NewSearchEntry(r))
	}
	return out
}

// Stats counts reviewer participation across reports. Each first review
// and each final review counts once.
func Stats(reports []*model.Report, now time.Time) model.AuditStats {
	stats := model.AuditStats{UpdatedAt: now, Reviewers: make(map[string]int)}
	for _, r := range reports {
		for _, login := range audit.Reviewers(r.AuditInfo) {
			stats.Reviewers[login]++
			stats.TotalReviews++
		}
	}
	return stats
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
