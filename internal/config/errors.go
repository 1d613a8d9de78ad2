package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrMissingRepository is returned when the owner or repository is empty.
	ErrMissingRepository = errors.New("missing repository: owner and repo are required")

	// ErrEmptyBasePath is returned when no dataset root is configured.
	ErrEmptyBasePath = errors.New("empty base path")

	// ErrInvalidMaxConcurrent is returned when fewer than one concurrent
	// tracker call is allowed.
	ErrInvalidMaxConcurrent = errors.New("invalid max concurrent: must be positive")

	// ErrInvalidMinTime is returned for a negative call spacing.
	ErrInvalidMinTime = errors.New("invalid min time: must be non-negative")

	// ErrInvalidTimeout is returned when the HTTP timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid http timeout: must be positive")

	// ErrInvalidHotListSize is returned for a negative hot list size.
	ErrInvalidHotListSize = errors.New("invalid hot list size: must be non-negative")

	// ErrEmptyLabel is returned when a parser section label is empty.
	ErrEmptyLabel = errors.New("empty section label")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidEnv is returned when an environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
