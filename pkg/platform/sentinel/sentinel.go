// Package sentinel holds the storage-level facts that stores report and
// services translate into domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound reports a missing row, key or pending challenge.
	ErrNotFound = errors.New("not found")
	// ErrExpired reports a record whose lifetime has ended.
	ErrExpired = errors.New("expired")
	// ErrInvalidState reports a record the store refuses to hold.
	ErrInvalidState = errors.New("invalid state")
)
