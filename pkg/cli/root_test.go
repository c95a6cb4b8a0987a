package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), runErr
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "troopctl", root.Name)

	expectedCommands := []string{
		"check",
		"field-mask",
		"migrate",
		"expire-invitations",
	}
	for _, cmdName := range expectedCommands {
		assert.Contains(t, root.Subcommands, cmdName)
		assert.NotNil(t, root.Subcommands[cmdName])
	}
	assert.Equal(t, len(expectedCommands), len(root.Subcommands))
}

func TestCommandUsage(t *testing.T) {
	root := NewRootCommand()

	output, err := captureStdout(t, root.usage)
	assert.NoError(t, err)

	assert.Contains(t, output, "Usage: troopctl <command> [args]")
	assert.Contains(t, output, "check")
	assert.Contains(t, output, "migrate")
}

func TestCommandExecute_NoArgs(t *testing.T) {
	root := NewRootCommand()

	oldArgs := os.Args
	os.Args = []string{"troopctl"}
	defer func() { os.Args = oldArgs }()

	output, err := captureStdout(t, root.Execute)
	assert.NoError(t, err)
	assert.Contains(t, output, "Usage: troopctl <command> [args]")
}

func TestCommandExecute_UnknownCommand(t *testing.T) {
	root := NewRootCommand()

	oldArgs := os.Args
	os.Args = []string{"troopctl", "nonexistent"}
	defer func() { os.Args = oldArgs }()

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: nonexistent")
}

func TestCommandExecute_SubcommandWithArgs(t *testing.T) {
	root := NewRootCommand()

	var receivedArgs []string
	root.Subcommands["test"] = &Command{
		Name: "test",
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}

	oldArgs := os.Args
	os.Args = []string{"troopctl", "test", "arg1", "-flag"}
	defer func() { os.Args = oldArgs }()

	require.NoError(t, root.Execute())
	assert.Equal(t, []string{"arg1", "-flag"}, receivedArgs)
}
