// Package groups implements the Group Membership Store.
//
// Groups are the unit of delegation within a team: users belong to groups,
// groups carry module grants, and a grant optionally names the CRM submodules
// it confers. A user's effective permissions on a team are the union of the
// grants of every group they belong to there; the union itself is computed by
// the access engine, this package only reports the raw grant rows.
//
// The store is deliberately free of policy. It does not know about owners,
// platform admins, or module enablement; it answers exactly one read for the
// engine (GetUserGrants) plus the CRUD the team-admin surface needs. Grant
// submodule sets are stored as JSON arrays in a TEXT column, matching the
// team registry's enabled-modules encoding.
package groups
