/*
Package repository implements the cache-aside data access layer between
the remote monitoring API and the local BoltDB cache.

One repository per entity family: Clients, Sites, Dashboard,
Notifications, Reports. All of them follow the same contract:

  - List and Watch read only the local store and never block on the
    network. Watch returns a channel that re-emits a full snapshot
    after every relevant store change, with latest-wins buffering for
    slow consumers.
  - GetByID is remote-first: a successful fetch is written through to
    the cache before it is returned, and a failed fetch falls back to
    the cached row silently. Only when the cache also misses does the
    original fault propagate.
  - Refresh replaces the family's rows from a full remote fetch in a
    single store transaction, leaving the cache untouched on failure.
    Refreshes are idempotent; the sync scheduler may invoke them
    repeatedly.

The Dashboard repository deviates from the row-cache pattern: its
fallback recomputes aggregate stats from cached sites and notifications
instead of replaying a stored snapshot, so offline numbers stay
consistent with what the other repositories hold.

A fallback hit is indistinguishable from a fresh one by design; callers
that care about staleness read the scheduler's last-sync timestamp.
*/
package repository
