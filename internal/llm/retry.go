package llm

import "time"

// BackoffFunc returns the sleep before the attempt after attempt k (0-indexed).
type BackoffFunc func(attempt int) time.Duration

// Policy defines retry behavior independently of wall-clock time so it
// can be tested with an injected sleep.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// LinearBackoff returns a policy that sleeps delay*(k+1) after failed
// attempt k. Transport failures only; HTTP status errors are not retried.
func LinearBackoff(maxAttempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return delay * time.Duration(attempt+1)
		},
	}
}
