package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "blacklist-etl"

	DefaultOwner = "OpenBlacklist"
	DefaultRepo  = "CompanyBlacklist"

	DefaultAPIURL = "https://api.github.com"
	DefaultWebURL = "https://github.com"

	// DefaultMaxConcurrent is the number of tracker calls allowed in flight.
	DefaultMaxConcurrent = 1

	// DefaultMinTime is the minimum spacing between tracker call starts.
	DefaultMinTime = 1000 * time.Millisecond

	// DefaultBasePath is the dataset root, relative to the working directory.
	DefaultBasePath = "../static_api/v1"

	DefaultHotListSize = 50

	// DefaultRunID is stamped into meta.json when no CI run id is known.
	DefaultRunID = "local"

	// DefaultHTTPTimeout bounds a single tracker request.
	DefaultHTTPTimeout = 30 * time.Second

	DefaultNameLabel   = "公司全称"
	DefaultCityLabel   = "所在城市"
	DefaultTagsLabel   = "问题标签"
	DefaultTitlePrefix = "[爆料]"
)

// Config holds all configuration of one ETL run.
type Config struct {
	// Owner and Repo identify the tracker repository.
	Owner string
	Repo  string

	// Token is the bearer token sent to the tracker. Empty means
	// unauthenticated requests.
	Token string

	// APIURL is the REST API root and WebURL the web root used in links.
	APIURL string
	WebURL string

	// MaxConcurrent bounds tracker calls in flight.
	MaxConcurrent int

	// MinTime is the minimum spacing between tracker call starts.
	MinTime time.Duration

	// HTTPTimeout bounds a single tracker request.
	HTTPTimeout time.Duration

	// BasePath is the dataset root directory.
	BasePath string

	// HotListSize is the number of entries in hot.json.
	HotListSize int

	// RunID is stamped into meta.json as build_id.
	RunID string

	// Verbose enables debug logging.
	Verbose bool

	// NameLabel, CityLabel and TagsLabel are the body section headings
	// fields are read from.
	NameLabel string
	CityLabel string
	TagsLabel string

	// TitlePrefix is stripped from the front of report titles.
	TitlePrefix string

	// ConfigFilePath is an explicit configuration file. When empty the file
	// is searched for with FindConfigFile.
	ConfigFilePath string

	// HistoryDir is the directory of the run history database.
	HistoryDir string

	// SaveHistory records the run report in the history database.
	SaveHistory bool

	// JSONReport and MarkdownReport select the run report format.
	// They are mutually exclusive; neither means plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the run report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Owner:         DefaultOwner,
		Repo:          DefaultRepo,
		APIURL:        DefaultAPIURL,
		WebURL:        DefaultWebURL,
		MaxConcurrent: DefaultMaxConcurrent,
		MinTime:       DefaultMinTime,
		HTTPTimeout:   DefaultHTTPTimeout,
		BasePath:      DefaultBasePath,
		HotListSize:   DefaultHotListSize,
		RunID:         DefaultRunID,
		NameLabel:     DefaultNameLabel,
		CityLabel:     DefaultCityLabel,
		TagsLabel:     DefaultTagsLabel,
		TitlePrefix:   DefaultTitlePrefix,
		HistoryDir:    XDGDataDir(),
		SaveHistory:   true,
	}
}

// XDGDataDir returns the XDG data directory of the application.
// On Linux: ~/.local/share/blacklist-etl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory of the application.
// On Linux: ~/.config/blacklist-etl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return ErrMissingRepository
	}
	if c.BasePath == "" {
		return ErrEmptyBasePath
	}
	if c.MaxConcurrent <= 0 {
		return ErrInvalidMaxConcurrent
	}
	if c.MinTime < 0 {
		return ErrInvalidMinTime
	}
	if c.HTTPTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.HotListSize < 0 {
		return ErrInvalidHotListSize
	}
	if c.NameLabel == "" || c.CityLabel == "" || c.TagsLabel == "" {
		return ErrEmptyLabel
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
