/*
Package api is the JSON-over-HTTPS client for the remote monitoring
service.

Every endpoint funnels through one generic adapter that performs a
single HTTP attempt and translates the result into an Outcome:
network-level failures become TransportFault, and non-2xx statuses,
empty success bodies and undecodable bodies become APIFault; a broken
response from the server is a server problem, so ParseFault stays
reserved for the live alert feed. The client itself never retries and
never touches the local cache; retry policy belongs to the sync
scheduler and caching to the repositories.

Authentication is not handled here either: pass an http.Client whose
transport is auth.Transport and tokens are attached (or withheld, for
the login and refresh endpoints) on the wire.
*/
package api
