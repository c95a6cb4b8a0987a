// Package observability provides the operational surface of the Troopbase
// service: structured logging, Prometheus metrics, health probes, graceful
// shutdown, and OpenTelemetry initialization.
//
// # Logging
//
// Logger wraps log/slog with a JSON handler and a mutable level, so the
// config watcher can raise or lower verbosity at runtime without restarting
// the process. Request-scoped fields (request ID, user ID) travel through
// the context helpers.
//
// # Metrics
//
// Metrics carries the Prometheus collectors. Beyond the standard HTTP
// metrics, AccessDecisionsTotal counts every access decision by module,
// outcome, and reason code, which keeps genuine denials distinguishable from
// missing-team denials and store faults on a dashboard without logging any
// identities. Metrics implements the access engine's DecisionRecorder.
//
// # Health
//
// HealthChecker probes Postgres and Redis. Postgres down means unhealthy
// (decisions cannot be computed); Redis down means degraded (sessions and
// shared rate limits suffer, decisions still work).
package observability
