package main

import (
	"bytes"
	"strings"
	"testing"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp_ListsCommands(t *testing.T) {
	output, err := runRootCommandForTest("--help")
	if err != nil {
		t.Fatalf("--help: %v\n%s", err, output)
	}

	for _, want := range []string{"chat", "gateway", "memories", "checkin", "onboard", "version"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q command", want)
		}
	}
}

func TestRoot_NoSubcommandIsError(t *testing.T) {
	if _, err := runRootCommandForTest(); err == nil {
		t.Fatalf("expected an error when no subcommand is given")
	}
}

func TestMemoriesHelp(t *testing.T) {
	output, err := runRootCommandForTest("memories", "--help")
	if err != nil {
		t.Fatalf("memories --help: %v", err)
	}
	if !strings.Contains(output, "list") || !strings.Contains(output, "rm") {
		t.Errorf("memories help missing subcommands:\n%s", output)
	}
}
