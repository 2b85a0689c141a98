package storage

import "errors"

// ErrSnapshotNotFound is returned when no snapshot is stored for the
// requested sysroot path.
var ErrSnapshotNotFound = errors.New("snapshot not found")
