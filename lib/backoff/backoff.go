// Package backoff holds the single retry policy shared by every fetch
// path, so the doubling/jitter behavior is defined (and tested) once.
package backoff

import (
	"time"

	random "github.com/mazen160/go-random"
)

type Policy struct {
	// starting backoff for the first retry
	Base time.Duration
	// backoff never grows beyond this
	Cap time.Duration
	// total attempts before giving up
	MaxAttempts int
}

func Default() Policy {
	return Policy{
		Base:        time.Second * 2,
		Cap:         time.Second * 60,
		MaxAttempts: 5,
	}
}

// Next doubles the current backoff, clamped at the cap.
func (p Policy) Next(current time.Duration) time.Duration {
	next := current * 2
	if next > p.Cap {
		next = p.Cap
	}
	return next
}

// Clamp bounds a server-provided delay (e.g. Retry-After) by the cap.
func (p Policy) Clamp(d time.Duration) time.Duration {
	if d > p.Cap {
		return p.Cap
	}
	return d
}

// Jitter adds a uniform 10%-30% of d on top of d, so concurrent clients
// backing off from the same signal don't retry in lockstep.
func Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	min := int64(d / 10)
	max := int64(3 * d / 10)
	extra, err := random.IntRange(int(min), int(max))
	if err != nil {
		return d + d/5
	}
	return d + time.Duration(extra)
}
