package cli

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/troopbase/troopbase/pkg/access"
)

func newCheckCommand() *Command {
	cmd := &Command{
		Name:        "check",
		Description: "Resolve a module access decision for a user on a team",
		Flags:       flag.NewFlagSet("check", flag.ExitOnError),
		Run:         runCheck,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")
	cmd.Flags.Int64("user", 0, "User ID")
	cmd.Flags.String("roles", "", "Comma-separated global roles (e.g. platform:admin)")
	cmd.Flags.Int64("team", 0, "Team ID")
	cmd.Flags.String("module", "", "Module key (admin, crm, funding)")

	return cmd
}

func runCheck(args []string) error {
	cmd := newCheckCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	server := cmd.Flags.Lookup("server").Value.String()
	user, _ := cmd.Flags.Lookup("user").Value.(flag.Getter).Get().(int64)
	team, _ := cmd.Flags.Lookup("team").Value.(flag.Getter).Get().(int64)
	module := cmd.Flags.Lookup("module").Value.String()
	roles := cmd.Flags.Lookup("roles").Value.String()

	if user == 0 || team == 0 || module == "" {
		return fmt.Errorf("user, team, and module are required")
	}

	payload := map[string]interface{}{
		"user_id": user,
		"team_id": team,
		"module":  module,
	}
	if roles != "" {
		var globalRoles []access.Role
		for _, r := range strings.Split(roles, ",") {
			globalRoles = append(globalRoles, access.Role(strings.TrimSpace(r)))
		}
		payload["global_roles"] = globalRoles
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := http.Post(server+"/v1/access/check", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decision access.Decision
	if err := json.Unmarshal(respBody, &decision); err != nil {
		return fmt.Errorf("failed to parse decision: %w", err)
	}

	return printDecision(os.Stdout, &decision)
}

func printDecision(w io.Writer, decision *access.Decision) error {
	outcome := "DENY"
	if decision.Allowed {
		outcome = "ALLOW"
	}
	fmt.Fprintf(w, "%s (%s)\n", outcome, decision.Reason)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(decision)
}
