// Package system provides the wall clock used to timestamp reports.
package system

import "time"

// Clock implements crawler.Clock and reports UTC time.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
