// Package middleware provides the HTTP middleware chain for the Troopbase
// service: request IDs, request logging, rate limiting, and team context
// resolution.
//
// Ordering matters. The request ID middleware runs first so every later log
// line carries it; logging wraps the rest so denials and rate-limit
// rejections are recorded; rate limiting sits before any database work; the
// team middleware resolves {team_id} once so handlers behind it can read the
// team from the context instead of re-querying.
//
// Two rate limiter flavors exist. RateLimitMiddleware keeps token buckets in
// process memory, bounded by an LRU so a scan of unique client keys cannot
// grow the table without limit. DistributedRateLimitMiddleware shares
// counters through Redis across instances and fails open when Redis is
// unreachable: throttling is load protection, not access control, so its
// failure must not take the service down.
package middleware
