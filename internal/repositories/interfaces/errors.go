package interfaces

import "errors"

// ErrNotFound is returned when a lookup or a conditional update matches no document.
var ErrNotFound = errors.New("document not found")
