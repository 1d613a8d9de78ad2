package model

import "time"

// DatasetVersion is the version stamped into meta.json.
const DatasetVersion = "1.0.0"

// UnknownPublisher is recorded when the tracker reports no issue author.
const UnknownPublisher = "Unknown"

// Report is a published blacklist record.
//
// RawBody holds the original markdown exactly as first persisted. Every
// other content field is derived from it and may be rewritten on any run.
type Report struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Tags      []string  `json:"tags"`
	Title     string    `json:"title"`
	BodyHTML  string    `json:"body_html"`
	RawBody   string    `json:"raw_body"`
	Images    []string  `json:"images"`
	AuditInfo AuditInfo `json:"audit_info"`
	SourceURL string    `json:"source_url"`
	ReportURL string    `json:"report_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditInfo is the moderation trail of a report.
// Nil fields serialize as null and mean the event never happened.
type AuditInfo struct {
	FirstReviewer *string    `json:"first_reviewer"`
	FinalReviewer *string    `json:"final_reviewer"`
	ApprovedAt    *time.Time `json:"approved_at"`
	Publisher     string     `json:"publisher"`
}

// SearchEntry is the compact projection of a report used by search shards
// and the hot list.
type SearchEntry struct {
	ID      int      `json:"id"`
	Name    string   `json:"n"`
	City    string   `json:"c"`
	Tags    []string `json:"t"`
	Updated int64    `json:"u"`
	Title   string   `json:"title"`
}

// NewSearchEntry projects a report into its compact search form.
func NewSearchEntry(r *Report) SearchEntry {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return SearchEntry{
		ID:      r.ID,
		Name:    r.Name,
		City:    r.City,
		Tags:    tags,
		Updated: r.UpdatedAt.Unix(),
		Title:   r.Title,
	}
}

// IndexEntry is a single row of _index.json.
type IndexEntry struct {
	ID      int   `json:"id"`
	Updated int64 `json:"u"`
}

// AuditStats aggregates reviewer participation across all reports.
type AuditStats struct {
	UpdatedAt    time.Time      `json:"updated_at"`
	TotalReviews int            `json:"total_reviews"`
	Reviewers    map[string]int `json:"reviewers"`
}

// DatasetMeta is the content of meta.json.
// LastUpdated is the watermark for the next incremental fetch.
type DatasetMeta struct {
	LastUpdated time.Time `json:"last_updated"`
	TotalCount  int       `json:"total_count"`
	Version     string    `json:"version"`
	BuildID     string    `json:"build_id"`
}

// NewDatasetMeta returns the meta used when no meta.json exists yet.
// Its watermark is the Unix epoch so the first run fetches everything.
func NewDatasetMeta(buildID string) DatasetMeta {
	return DatasetMeta{
		LastUpdated: time.Unix(0, 0).UTC(),
		Version:     DatasetVersion,
		BuildID:     buildID,
	}
}
