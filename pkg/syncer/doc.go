/*
Package syncer runs the periodic background job that reconciles the
local cache with the remote monitoring API.

# Run Lifecycle

Each scheduled run walks a fixed state machine:

	Idle ──▶ Running ──▶ Succeeded
	            │ ▲
	            ▼ │ (attempt ≤ retry budget)
	         Retrying
	            │
	            ▼ (budget exhausted)
	          Failed

A run starts with a connectivity probe; when offline the run is
deferred without consuming an attempt. Online, the scheduler invokes
each repository's Refresh sequentially in the order the repositories
were registered, and the run succeeds only when all of them do. A
failed attempt backs off exponentially and retries; after the initial
attempt plus three retries the run is marked Failed and waits for the
next period. The retry counter is in-memory only, so a process restart
starts with a fresh budget.

On success the completion time is written to the preference store,
where the dashboard's offline recompute picks it up.

# Usage

	sched := syncer.NewScheduler(syncer.Config{Interval: cfg.SyncInterval()},
		checker, cfg, dashboardRepo, clientRepo, siteRepo)
	sched.Start(ctx)
	defer sched.Stop()

Start is idempotent and runs an immediate first sync; later runs fire
every Interval. RunOnce is also exported for one-shot CLI use.
*/
package syncer
