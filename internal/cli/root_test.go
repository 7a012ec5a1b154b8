package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "facet", cmd.Use)
	assert.Contains(t, cmd.Long, "faceted search")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"parse"},
		{"format"},
		{"validate"},
		{"suggest"},
		{"track"},
		{"share"},
		{"sql"},
		{"catalog", "check"},
		{"catalog", "show"},
		{"history", "list"},
		{"history", "remove"},
		{"history", "clear"},
		{"template", "save"},
		{"template", "list"},
		{"template", "apply"},
		{"template", "delete"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("catalog"))
}

func TestSuggestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	suggestCmd, _, err := cmd.Find([]string{"suggest"})
	require.NoError(t, err)

	for _, name := range []string{"input", "field", "current"} {
		require.NotNil(t, suggestCmd.Flags().Lookup(name), name)
	}
	limitFlag := suggestCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "0", limitFlag.DefValue)
}

func TestTrackCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	trackCmd, _, err := cmd.Find([]string{"track"})
	require.NoError(t, err)

	actionFlag := trackCmd.Flags().Lookup("action")
	require.NotNil(t, actionFlag)
	assert.Equal(t, "search_executed", actionFlag.DefValue)

	modeFlag := trackCmd.Flags().Lookup("mode")
	require.NotNil(t, modeFlag)
	assert.Equal(t, "visual", modeFlag.DefValue)
}

func TestShareCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	shareCmd, _, err := cmd.Find([]string{"share"})
	require.NoError(t, err)

	baseFlag := shareCmd.Flags().Lookup("base")
	require.NotNil(t, baseFlag)
	assert.Equal(t, DefaultShareBase, baseFlag.DefValue)
	require.NotNil(t, shareCmd.Flags().Lookup("decode"))
}

func TestQueryCommandsHaveOrFlag(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"parse", "format", "validate", "track", "sql"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		orFlag := sub.Flags().Lookup("or")
		require.NotNil(t, orFlag, name)
		assert.Equal(t, "false", orFlag.DefValue)
	}
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "parse", "status:Active"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
