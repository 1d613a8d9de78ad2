package config

import (
	"fmt"
	"strconv"
	"time"
)

// Environment variables read by ApplyEnv.
const (
	EnvOwner         = "GITHUB_OWNER"
	EnvRepo          = "GITHUB_REPO"
	EnvToken         = "GITHUB_TOKEN"
	EnvAPIURL        = "GITHUB_API_URL"
	EnvWebURL        = "GITHUB_SERVER_URL"
	EnvRunID         = "GITHUB_RUN_ID"
	EnvMaxConcurrent = "RATE_LIMIT_MAX_CONCURRENT"
	EnvMinTime       = "RATE_LIMIT_MIN_TIME"
	EnvBasePath      = "API_BASE_PATH"
	EnvHotListSize   = "HOT_LIST_SIZE"
	EnvDebug         = "DEBUG"
	EnvHTTPTimeout   = "HTTP_TIMEOUT"
	EnvHistoryDir    = "ETL_HISTORY_DIR"
)

// ApplyEnv overlays the environment onto c. getenv is usually os.Getenv.
// Unset or empty variables keep the current value. RATE_LIMIT_MIN_TIME is
// in milliseconds and HTTP_TIMEOUT is a Go duration string.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString(&c.Owner, getenv(EnvOwner))
	setString(&c.Repo, getenv(EnvRepo))
	setString(&c.Token, getenv(EnvToken))
	setString(&c.APIURL, getenv(EnvAPIURL))
	setString(&c.WebURL, getenv(EnvWebURL))
	setString(&c.RunID, getenv(EnvRunID))
	setString(&c.BasePath, getenv(EnvBasePath))
	setString(&c.HistoryDir, getenv(EnvHistoryDir))

	if v := getenv(EnvDebug); v == "true" {
		c.Verbose = true
	}

	if err := envInt(getenv, EnvMaxConcurrent, &c.MaxConcurrent); err != nil {
		return err
	}
	if err := envInt(getenv, EnvHotListSize, &c.HotListSize); err != nil {
		return err
	}

	var ms int
	if err := envInt(getenv, EnvMinTime, &ms); err != nil {
		return err
	}
	if getenv(EnvMinTime) != "" {
		c.MinTime = time.Duration(ms) * time.Millisecond
	}

	if v := getenv(EnvHTTPTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidEnv, EnvHTTPTimeout, v, err)
		}
		c.HTTPTimeout = d
	}
	return nil
}

func envInt(getenv func(string) string, name string, dst *int) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %w", ErrInvalidEnv, name, v, err)
	}
	*dst = n
	return nil
}
