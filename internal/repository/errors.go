// Package repository implements persistence for accounts, sessions and room
// state on MySQL, plus the Redis gold leaderboard. These sentinel values let
// handlers and the room tell failure scenarios apart.
package repository

import "errors"

// ErrNotFound is returned when a looked-up row does not exist. Handlers
// translate it into an HTTP 404, or a 401 for credentials.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create for a duplicate email.
// Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrSessionInvalid is returned when a session is unknown, revoked or
// expired.
var ErrSessionInvalid = errors.New("session invalid")
