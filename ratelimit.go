// Copyright 2026 Joseph Cumines / Permission to use, copy, modify, and
// distribute this software for any purpose with or without fee is hereby
// granted, provided that this copyright notice appears in all copies.

package effect

import (
	"time"

	catrate "github.com/joeycumines/go-catrate"
)

// Throttle runs eff only once limiter.Allow(category) admits an event for
// category, sleeping (without blocking a native goroutine or the run
// loop's bind stack - see sleepUntil) and retrying via Suspend in the
// meantime. A nil limiter disables throttling entirely, since
// (*catrate.Limiter)(nil).Allow always reports true.
func Throttle(limiter *catrate.Limiter, category any, eff *Effect) *Effect {
	return Suspend(func() (*Effect, error) {
		next, ok := limiter.Allow(category)
		if ok {
			return eff, nil
		}
		return sleepUntil(next).Then(Throttle(limiter, category, eff)), nil
	})
}

// sleepUntil suspends until t via a single timer callback, never blocking a
// goroutine for the duration of the wait.
func sleepUntil(t time.Time) *Effect {
	d := time.Until(t)
	if d <= 0 {
		return Unit()
	}
	return Async(func(resume func(Result)) {
		time.AfterFunc(d, func() { resume(Ok(nil)) })
	}, true)
}
