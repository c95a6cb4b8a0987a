// Package cli implements the troopctl command set: access checks and field
// mask queries against a running server, plus schema migrations and
// invitation sweeps that talk to Postgres directly.
package cli
