package domain

import "errors"

// ErrConflict is returned by repositories when an insert hits a unique
// constraint. Services map it to the matching AppError.
var ErrConflict = errors.New("conflict")
