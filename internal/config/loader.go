package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".blacklist-etl.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the YAML configuration file.
// Every field is optional; absent fields keep their current value.
type File struct {
	Owner         string        `yaml:"owner,omitempty"`
	Repo          string        `yaml:"repo,omitempty"`
	APIURL        string        `yaml:"api_url,omitempty"`
	WebURL        string        `yaml:"web_url,omitempty"`
	BasePath      string        `yaml:"base_path,omitempty"`
	HotListSize   *int          `yaml:"hot_list_size,omitempty"`
	MaxConcurrent *int          `yaml:"max_concurrent,omitempty"`
	MinTime       *Duration     `yaml:"min_time,omitempty"`
	HTTPTimeout   *Duration     `yaml:"http_timeout,omitempty"`
	HistoryDir    string        `yaml:"history_dir,omitempty"`
	Parser        ParserSection `yaml:"parser,omitempty"`
}

// ParserSection configures the issue parser.
type ParserSection struct {
	TitlePrefix string       `yaml:"title_prefix,omitempty"`
	Labels      LabelSection `yaml:"labels,omitempty"`
}

// LabelSection holds the body section headings.
type LabelSection struct {
	Name string `yaml:"name,omitempty"`
	City string `yaml:"city,omitempty"`
	Tags string `yaml:"tags,omitempty"`
}

// Duration is a time.Duration written as a Go duration string in YAML,
// for example "1500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile loads the YAML configuration file at path.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .blacklist-etl.yaml in the current directory
// 3. Look for .blacklist-etl.yaml in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ApplyFile overlays the values set in f onto c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	setString(&c.Owner, f.Owner)
	setString(&c.Repo, f.Repo)
	setString(&c.APIURL, f.APIURL)
	setString(&c.WebURL, f.WebURL)
	setString(&c.BasePath, f.BasePath)
	setString(&c.HistoryDir, f.HistoryDir)
	setString(&c.TitlePrefix, f.Parser.TitlePrefix)
	setString(&c.NameLabel, f.Parser.Labels.Name)
	setString(&c.CityLabel, f.Parser.Labels.City)
	setString(&c.TagsLabel, f.Parser.Labels.Tags)

	if f.HotListSize != nil {
		c.HotListSize = *f.HotListSize
	}
	if f.MaxConcurrent != nil {
		c.MaxConcurrent = *f.MaxConcurrent
	}
	if f.MinTime != nil {
		c.MinTime = time.Duration(*f.MinTime)
	}
	if f.HTTPTimeout != nil {
		c.HTTPTimeout = time.Duration(*f.HTTPTimeout)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
