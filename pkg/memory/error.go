package memory

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when memory operations are attempted
// but no memory driver has been configured.
var ErrNotConfigured = errors.New("memory not configured")

// ErrClosed is returned by every driver method after Close.
var ErrClosed = errors.New("memory store is closed")

// ErrEmptyContent is returned when a draft arrives without content.
var ErrEmptyContent = errors.New("memory content is empty")

// ErrInvalidType is returned when a draft carries a type outside the
// known set.
type ErrInvalidType struct {
	Type Type
}

func (e ErrInvalidType) Error() string {
	return fmt.Sprintf("invalid memory type: %q", string(e.Type))
}
