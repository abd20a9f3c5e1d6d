// Package repository defines the persistence contracts of the API, their
// MySQL implementations and the sentinel errors shared by every store.
// Higher layers only ever see these sentinels; driver errors are returned
// as-is and treated as server failures.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Handlers
// translate it into a 404 style catalog error.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key, such as
// a second like of the same moment or an already taken username.
var ErrDuplicate = errors.New("duplicate")
