// Package backoff classifies upstream failures and computes retry waits.
//
// The policy is a pure function of the classified failure and per-call
// counters; it never sleeps or touches the network, which keeps every wait
// computation unit-testable. Three failure classes exist, evaluated in
// precedence order: connection resets (fixed wait plus an escalating
// cooldown after sustained instability), rate limits (linear ramp with a
// cap, preferring the server's own retry hint when one is present), and
// everything else (base wait plus jitter).
package backoff
