package storage

import "errors"

// ErrTaskNotFound is returned when a task does not exist or is owned by a
// different user. The two cases are deliberately indistinguishable.
var ErrTaskNotFound = errors.New("storage: task not found")
