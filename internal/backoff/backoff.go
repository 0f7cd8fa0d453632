// Package backoff computes the wait between node reconnect attempts.
package backoff

import "time"

// Policy doubles the delay on every attempt, starting at Base and
// capped at Cap.
type Policy struct {
	Base time.Duration
	Cap  time.Duration
}

// Default paces reconnects at 1s, 2s, 4s, ... up to 30s.
var Default = Policy{Base: time.Second, Cap: 30 * time.Second}

// Delay returns the wait before the given attempt. Attempts are
// 1-based; anything below that is treated as the first attempt.
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Cap {
			return p.Cap
		}
	}
	return delay
}
