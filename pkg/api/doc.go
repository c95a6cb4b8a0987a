// Package api assembles the HTTP surface of the service: the middleware
// chain, the per-package route registrations, and the separate health and
// metrics listener.
//
// Middleware runs in a fixed order. Request IDs come first so every later
// stage can log them. Session resolution runs before logging so log lines
// carry the user ID. Rate limiting runs last, after identity is known, so
// authenticated clients are throttled per user rather than per IP.
package api
