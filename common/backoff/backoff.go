// Package backoff contains helpers for dealing with backoffs.
package backoff

import "github.com/cenkalti/backoff/v4"

// NewExponentialBackOff creates an instance of ExponentialBackOff using reasonable defaults.
func NewExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	// Make sure that the backoff never stops by default.
	b.MaxElapsedTime = 0
	return b
}
