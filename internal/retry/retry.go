// Package retry holds the backoff policy shared by the Tautulli and Discord
// clients. Sleeping is injectable so tests can drive the loops without real
// delays.
package retry

import (
	"errors"
	"time"
)

var ErrNoAttempts = errors.New("retry policy allows no attempts")

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep is called to wait between attempts. Nil means time.Sleep.
	Sleep func(time.Duration)
	// Notify, when set, is invoked before each backoff wait with the
	// 1-based number of the attempt that just failed.
	Notify func(attempt int, delay time.Duration, err error)
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrNoAttempts
	}
	return nil
}

// Backoff returns the delay after a failed attempt (zero-based). Delays
// double each attempt: BaseDelay, 2*BaseDelay, 4*BaseDelay, ...
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.BaseDelay << uint(attempt)
}

func (p Policy) Wait(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Permanent marks err as not worth retrying; Do stops immediately and
// returns the original error.
func Permanent(err error) error {
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Do runs fn up to MaxAttempts times, backing off between attempts. It
// returns the last error on exhaustion, or immediately when fn reports a
// Permanent error.
func (p Policy) Do(fn func() error) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt < p.MaxAttempts-1 {
			delay := p.Backoff(attempt)
			if p.Notify != nil {
				p.Notify(attempt+1, delay, lastErr)
			}
			p.Wait(delay)
		}
	}
	return lastErr
}
