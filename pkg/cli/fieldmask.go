package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

func newFieldMaskCommand() *Command {
	cmd := &Command{
		Name:        "field-mask",
		Description: "Show the record fields visible to the calling session",
		Flags:       flag.NewFlagSet("field-mask", flag.ExitOnError),
		Run:         runFieldMask,
	}

	cmd.Flags.String("server", "http://localhost:8080", "Server URL")
	cmd.Flags.String("session", "", "Session token (also read from TROOP_SESSION)")
	cmd.Flags.Int64("team", 0, "Team ID")
	cmd.Flags.String("record-kind", "contact", "Record kind to resolve")

	return cmd
}

func runFieldMask(args []string) error {
	cmd := newFieldMaskCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	server := cmd.Flags.Lookup("server").Value.String()
	team, _ := cmd.Flags.Lookup("team").Value.(flag.Getter).Get().(int64)
	kind := cmd.Flags.Lookup("record-kind").Value.String()

	session := cmd.Flags.Lookup("session").Value.String()
	if session == "" {
		session = os.Getenv("TROOP_SESSION")
	}

	if team == 0 {
		return fmt.Errorf("team is required")
	}
	if session == "" {
		return fmt.Errorf("session token is required (--session or TROOP_SESSION)")
	}

	endpoint := fmt.Sprintf("%s/v1/teams/%d/field-mask?record_kind=%s",
		server, team, url.QueryEscape(kind))

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var mask struct {
		RecordKind string   `json:"record_kind"`
		Visible    bool     `json:"visible"`
		Fields     []string `json:"fields"`
	}
	if err := json.Unmarshal(body, &mask); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !mask.Visible {
		fmt.Printf("%s: not visible\n", mask.RecordKind)
		return nil
	}
	fmt.Printf("%s: %s\n", mask.RecordKind, strings.Join(mask.Fields, ", "))
	return nil
}
