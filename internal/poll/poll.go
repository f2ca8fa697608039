// Package poll repeats a status check until it reports completion.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when MaxAttempts checks ran without completion.
var ErrExhausted = errors.New("poll: attempts exhausted")

// Policy bounds a polling loop.
type Policy struct {
	// Interval is waited before every check.
	Interval time.Duration `yaml:"interval"`
	// MaxAttempts caps the number of checks. Zero means unbounded.
	MaxAttempts int `yaml:"max_attempts"`
}

// CheckFunc reports whether the awaited operation is done.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Until waits Interval, calls check, and repeats until check returns done or
// an error, ctx is cancelled, or MaxAttempts is reached. It returns the number
// of checks performed.
func Until(ctx context.Context, p Policy, check CheckFunc) (int, error) {
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-timer.C:
		}

		attempts++
		done, err := check(ctx)
		if err != nil {
			return attempts, err
		}
		if done {
			return attempts, nil
		}
		if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
			return attempts, ErrExhausted
		}
		timer.Reset(p.Interval)
	}
}
