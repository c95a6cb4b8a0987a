// Package teams implements the Team Registry: team lifecycle, ownership,
// per-team module enablement, and email invitations.
//
// Teams are the platform's tenants. Each team has exactly one owner and a set
// of enabled modules; the registry applies the platform default set to teams
// that never recorded one, so readers (notably the access engine) always see
// a concrete list. Module enablement is data, not policy: the access engine
// in pkg/access interprets it.
//
// The PostgresRegistry persists teams with database/sql over lib/pq. The
// enabled-module set is stored as a JSON array in a TEXT column so the same
// statements run under the sqlite3 driver in tests.
//
// Invitations let an owner or admin bring users onto a team. Tokens are
// random UUIDs, invitations expire after seven days, and a cron-driven
// sweeper (StartInvitationSweeper) marks expired rows so they cannot be
// accepted later.
package teams
