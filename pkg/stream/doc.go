/*
Package stream maintains the long-lived subscription to the ntfy-style
alert feed.

The client issues GET {server}/{topic}/json and consumes one JSON event
per line for as long as the server keeps the connection open. The
connection lifecycle is a small state machine:

	Disconnected ──▶ Connecting ──▶ Streaming
	      ▲               │             │
	      └──── 5s delay ◀┴─────────────┘ (connection lost)

Any exit from the Streaming state other than context cancellation leads
back to a reconnect after a fixed delay, forever. Lines that fail to
parse are counted and discarded without touching the connection, and
only events with event == "message" reach the handler; open markers and
keepalives are consumed silently.

Cancellation of the Run context aborts the in-flight read immediately
because the subscription request carries the context.
*/
package stream
