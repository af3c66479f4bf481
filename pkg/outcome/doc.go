/*
Package outcome provides the three-state result type used across
Outpost for operations that can be in flight, succeed, or fail with a
classified fault.

An Outcome[T] is exactly one of Success (carrying a T), Error (carrying
a *Fault), or Loading. The zero value is Loading, so a freshly declared
result is safely "not done yet". Faults carry a Kind from a small
closed taxonomy - transport, api, auth, parse, store - that callers use
to decide between retrying, re-authenticating, and giving up:

	res := client.GetDashboardStats(ctx)
	res.Match(
		func(stats *types.DashboardStats) { render(stats) },
		func(f *outcome.Fault) { log.Error().Err(f).Msg("fetch failed") },
		nil,
	)

Outcomes are values created per call attempt and never persisted.
*/
package outcome
