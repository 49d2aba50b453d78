package attachment

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the parent of every rejection caused by the request itself.
var ErrInvalidInput = errors.New("invalid attachment input")

var (
	// ErrEmptyName is returned when the file descriptor has no name.
	ErrEmptyName = fmt.Errorf("%w: file name is empty", ErrInvalidInput)
	// ErrDisallowedType is returned when the extension is not accepted.
	ErrDisallowedType = fmt.Errorf("%w: file type not allowed", ErrInvalidInput)
	// ErrTypeMismatch is returned when a modify would change the file type.
	ErrTypeMismatch = fmt.Errorf("%w: file type differs from the stored attachment", ErrInvalidInput)
	// ErrNoContent is returned when a descriptor has neither a temp file nor bytes.
	ErrNoContent = fmt.Errorf("%w: no file content", ErrInvalidInput)
)

// ErrRemoteFailed covers both an unreachable image host and one that rejected the request.
var ErrRemoteFailed = errors.New("image host request failed")

// ErrLocalIO is returned when a local file operation fails.
var ErrLocalIO = errors.New("local file operation failed")
