package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestRootHelpListsSubcommands(t *testing.T) {
	output, err := runRootCommandForTest("--help")
	require.NoError(t, err)

	for _, sub := range []string{"onboard", "gateway", "chat", "status", "version"} {
		assert.Contains(t, output, sub)
	}
}

func TestRootWithoutSubcommandErrors(t *testing.T) {
	_, err := runRootCommandForTest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand is required")
}

func TestUnknownSubcommandErrors(t *testing.T) {
	_, err := runRootCommandForTest("frobnicate")
	assert.Error(t, err)
}
