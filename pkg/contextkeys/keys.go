// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/troopbase/troopbase/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.PrincipalKey, principal)
//   principal := ctx.Value(contextkeys.PrincipalKey).(*access.Principal)
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *access.Principal
	// Set by: session.Middleware (pkg/session/middleware.go)
	// Required by: access guard middleware, all team-scoped endpoints
	// Type: *access.Principal
	PrincipalKey Key = "principal"

	// TeamKey contains *teams.Team
	// Set by: middleware.TeamContext (pkg/middleware/team.go)
	// Required by: team-scoped endpoints, access guard middleware
	// Type: *teams.Team
	TeamKey Key = "team"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: Logger, telemetry
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability.WithLogger
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)
