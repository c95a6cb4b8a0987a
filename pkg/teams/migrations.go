package teams

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all team registry migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create teams table",
			SQL: `
				CREATE TABLE IF NOT EXISTS teams (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					owner_user_id BIGINT NOT NULL,
					status VARCHAR(50) NOT NULL DEFAULT 'active',
					enabled_modules TEXT NOT NULL DEFAULT '[]',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_teams_owner_user_id ON teams(owner_user_id);
				CREATE INDEX idx_teams_slug ON teams(slug);
				CREATE INDEX idx_teams_status ON teams(status);
			`,
		},
		{
			Version:     2,
			Description: "Create team_invitations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS team_invitations (
					id BIGSERIAL PRIMARY KEY,
					team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					email VARCHAR(255) NOT NULL,
					token VARCHAR(64) NOT NULL UNIQUE,
					invited_by BIGINT NOT NULL,
					status VARCHAR(50) NOT NULL DEFAULT 'pending',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP NOT NULL,
					accepted_at TIMESTAMP
				);

				CREATE INDEX idx_team_invitations_team_id ON team_invitations(team_id);
				CREATE INDEX idx_team_invitations_token ON team_invitations(token);
				CREATE INDEX idx_team_invitations_status_expires ON team_invitations(status, expires_at);
			`,
		},
	}
}
