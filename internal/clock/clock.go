// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package clock abstracts the current time so time-window logic can be tested.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the production clock. It always reports UTC.
type System struct{}

// New returns the system clock.
func New() System {
	return System{}
}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}
