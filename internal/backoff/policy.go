// Package backoff provides exponential backoff with jitter for retrying
// fallible external calls.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines the parameters for exponential backoff calculation.
type Policy struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Cap is the maximum delay between attempts.
	Cap time.Duration
	// Factor is the exponential multiplier applied per attempt.
	Factor float64
	// Jitter is the symmetric randomization factor in [0, 1]. A jitter of
	// 0.5 perturbs each delay by up to ±50%.
	Jitter float64
}

// Delay calculates the backoff before retry number attempt (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	return p.DelayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter does not need crypto randomness
}

// DelayWithRand calculates the backoff using a provided random value in
// [0, 1), for deterministic tests. The perturbation is symmetric: random
// 0.5 yields exactly the unjittered delay.
func (p Policy) DelayWithRand(attempt int, random float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(p.Base) * math.Pow(p.Factor, exp)
	perturbed := base * (1 + p.Jitter*(2*random-1))
	if capped := float64(p.Cap); perturbed > capped {
		perturbed = capped
	}
	if perturbed < 0 {
		perturbed = 0
	}
	return time.Duration(math.Round(perturbed))
}

// Default returns the standard policy for external calls: 1s base, 60s cap,
// doubling, ±50% jitter. Delays are therefore ~1s, 2s, 4s perturbed.
func Default() Policy {
	return Policy{
		Base:   time.Second,
		Cap:    60 * time.Second,
		Factor: 2,
		Jitter: 0.5,
	}
}

// Ledger returns the policy used for credit ledger calls, which favors
// quick retries so tool latency stays bounded.
func Ledger() Policy {
	return Policy{
		Base:   200 * time.Millisecond,
		Cap:    5 * time.Second,
		Factor: 2,
		Jitter: 0.25,
	}
}
