package backoff

import (
	"errors"
	"math/rand"
	"time"
)

// ErrRetriesExhausted marks a terminal failure after the retry budget is
// spent. Callers should surface it rather than swallow it.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Class identifies the failure family a retry wait is computed for.
type Class int

const (
	ClassOther Class = iota
	ClassConnectionReset
	ClassRateLimited
)

func (c Class) String() string {
	switch c {
	case ClassConnectionReset:
		return "connection_reset"
	case ClassRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// Failure is the classified view of an upstream error the policy consumes.
type Failure struct {
	Class Class
	// RetryDelay carries a server-suggested wait for rate-limit failures;
	// zero when the server offered no hint.
	RetryDelay time.Duration
	// QuotaDimension describes which quota was exhausted, when known.
	// Observability only; it never influences the computed wait.
	QuotaDimension string
}

// State holds the per-call counters the policy evolves. It is reset at the
// start of every top-level call and never persisted.
type State struct {
	Retries          int
	ConnectionErrors int
}

// Decision is the policy's verdict for a single failure.
type Decision struct {
	Class Class
	// Wait is the pause before the next attempt.
	Wait time.Duration
	// Cooldown is an extra pause taken after Wait when sustained
	// connection instability crosses the configured threshold.
	Cooldown time.Duration
	// Retry is false once the retry budget is exhausted.
	Retry bool
}

// Policy computes retry waits per failure class. It performs no I/O and no
// sleeping; callers own the clock.
type Policy struct {
	MaxRetries int

	// Rate-limit class: wait = min(BaseWait + retries*RateStep, MaxWait)
	// scaled by jitter in [0.8, 1.2], unless the failure carries a server
	// hint, in which case the hint scaled by [1.0, 1.2] wins.
	BaseWait time.Duration
	RateStep time.Duration
	MaxWait  time.Duration

	// Connection-reset class: wait = ConnectionWait + uniform(0, ConnectionJitter).
	// After ConnectionErrorThreshold consecutive connection failures the
	// decision carries ConnectionCooldown and the counter resets.
	ConnectionWait           time.Duration
	ConnectionJitter         time.Duration
	ConnectionErrorThreshold int
	ConnectionCooldown       time.Duration

	// Other failures: wait = BaseWait + uniform(0, OtherJitter).
	OtherJitter time.Duration

	// randFloat returns values in [0, 1); overridable for deterministic tests.
	randFloat func() float64
}

// Default returns the production policy tuning.
func Default() Policy {
	return Policy{
		MaxRetries:               20,
		BaseWait:                 15 * time.Second,
		RateStep:                 5 * time.Second,
		MaxWait:                  60 * time.Second,
		ConnectionWait:           45 * time.Second,
		ConnectionJitter:         15 * time.Second,
		ConnectionErrorThreshold: 10,
		ConnectionCooldown:       180 * time.Second,
		OtherJitter:              10 * time.Second,
	}
}

// WithRand returns a copy of the policy using the provided random source.
func (p Policy) WithRand(randFloat func() float64) Policy {
	p.randFloat = randFloat
	return p
}

// Next consumes one failure and returns the wait decision plus the evolved
// state. It is a pure function of (failure, state) given a fixed random
// source.
func (p Policy) Next(state State, failure Failure) (Decision, State) {
	next := state
	next.Retries++

	decision := Decision{Class: failure.Class}

	switch failure.Class {
	case ClassConnectionReset:
		decision.Wait = p.ConnectionWait + p.uniform(p.ConnectionJitter)
		next.ConnectionErrors++
		if p.ConnectionErrorThreshold > 0 && next.ConnectionErrors >= p.ConnectionErrorThreshold {
			decision.Cooldown = p.ConnectionCooldown
			next.ConnectionErrors = 0
		}
	case ClassRateLimited:
		if failure.RetryDelay > 0 {
			// Server hint wins; stretch it slightly to desynchronize
			// clients that all received the same hint.
			decision.Wait = scale(failure.RetryDelay, 1.0+0.2*p.rand())
		} else {
			computed := p.BaseWait + time.Duration(next.Retries)*p.RateStep
			if computed > p.MaxWait {
				computed = p.MaxWait
			}
			decision.Wait = scale(computed, 0.8+0.4*p.rand())
		}
	default:
		decision.Wait = p.BaseWait + p.uniform(p.OtherJitter)
	}

	decision.Retry = next.Retries < p.MaxRetries
	return decision, next
}

func (p Policy) rand() float64 {
	if p.randFloat != nil {
		return p.randFloat()
	}
	return rand.Float64()
}

func (p Policy) uniform(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(p.rand() * float64(max))
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}
