package persistence

import "errors"

// ErrUnavailable is returned when the backing store cannot be reached.
// Loading a collection that was never saved is not an error; both backends
// yield an empty sequence instead.
var ErrUnavailable = errors.New("persistence: store unavailable")
