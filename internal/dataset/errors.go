package dataset

import "errors"

var (
	// ErrInvalidRecord is returned for a report without a usable id.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrCorruptMeta is returned when meta.json exists but cannot be decoded.
	ErrCorruptMeta = errors.New("corrupt meta.json")

	// ErrDerive wraps a failure while deriving a report.
	ErrDerive = errors.New("failed to derive report")
)
