// Package services implements the conversation engine that drives the
// lead-intake flow. This file centralizes the service-level error values so
// internal steps can signal outcomes that the engine translates into user
// replies; none of these values ever reaches a user verbatim.
package services

import "errors"

var (
	// ErrPhoneRegistered is returned when the submitted phone number already
	// exists in the ledger's phone column.
	ErrPhoneRegistered = errors.New("phone already registered")

	// ErrLedgerUnavailable wraps ledger read/write failures. The session is
	// retained so the user can retry the same input after a transient
	// outage.
	ErrLedgerUnavailable = errors.New("lead ledger unavailable")
)
