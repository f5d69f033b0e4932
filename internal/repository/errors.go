// Package repository implements persistence for principals against the MySQL
// user store.  Sentinel errors defined here let higher layers distinguish
// failure scenarios without inspecting driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update collides with the
// unique index on users.email.  Handlers translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when the requested user row does not exist.
// Handlers translate this into an HTTP 404.
var ErrNotFound = errors.New("user not found")
