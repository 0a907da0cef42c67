package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root := RootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "knobctl version") {
		t.Errorf("expected output to contain 'knobctl version', got: %s", out)
	}
	if !strings.Contains(out, "protocol version") {
		t.Errorf("expected output to contain 'protocol version', got: %s", out)
	}
}

func TestSendCommandRejectsUnknownName(t *testing.T) {
	_, err := executeCommand("send", "command", "self-destruct")
	if err == nil {
		t.Fatal("expected error for unknown command name, got nil")
	}
	if !strings.Contains(err.Error(), "self-destruct") {
		t.Errorf("error should name the bad command, got: %v", err)
	}
}

func TestHelpListsSubcommands(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"ports", "monitor", "send", "stats", "dashboard", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q subcommand", sub)
		}
	}
}
