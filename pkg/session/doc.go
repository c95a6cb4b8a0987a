// Package session resolves opaque session IDs to authenticated principals.
//
// Authentication itself (login, token issuance) happens elsewhere; this
// package only looks up an existing session and hands the access engine a
// Principal. Sessions live in Redis under "session:<id>" as a JSON-encoded
// principal with a sliding TTL, so logging a user out is a single key delete
// that takes effect on their next request.
//
// Middleware extracts the session ID from a Bearer token or the session
// cookie and attaches the principal to the request context. Requests without
// a valid session pass through unauthenticated; route guards decide whether
// that matters.
package session
