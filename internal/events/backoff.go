package events

import "time"

// backoff doubles the delay with each attempt: base * 2^attempt.
func backoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}
