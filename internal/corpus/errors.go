package corpus

import "errors"

var (
	// ErrUnknownType is returned by Open for an unrecognised corpus type.
	ErrUnknownType = errors.New("unknown corpus type")
	// ErrNotDirectory is returned when a directory corpus points at a file.
	ErrNotDirectory = errors.New("corpus path is not a directory")
)
