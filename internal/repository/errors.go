// Package repository holds the stores behind the services: in-memory maps
// for sessions, users, refresh tokens and audit events, plus the optional
// MySQL sale archive. The sentinel errors below let handlers pick a status
// code without inspecting messages.
package repository

import "errors"

// ErrNotFound is returned when a lookup key does not exist. Handlers
// translate it into 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a create would overwrite an existing
// record. Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

func isConflict(err error) bool { return errors.Is(err, ErrConflict) }
