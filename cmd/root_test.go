package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"catalog", "profile", "benchmark", "compare", "score", "import", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "council-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestProfileCommand_Flags(t *testing.T) {
	flag := profileCmd.Flags().Lookup("council")
	require.NotNil(t, flag, "profile command should have --council flag")

	missing := profileCmd.Flags().Lookup("missing")
	require.NotNil(t, missing, "profile command should have --missing flag")
	assert.Equal(t, "false", missing.DefValue)

	format := profileCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "table", format.DefValue)
}

func TestBenchmarkCommand_Flags(t *testing.T) {
	flag := benchmarkCmd.Flags().Lookup("region")
	require.NotNil(t, flag, "benchmark command should have --region flag")
}

func TestCompareCommand_Flags(t *testing.T) {
	flag := compareCmd.Flags().Lookup("councils")
	require.NotNil(t, flag, "compare command should have --councils flag")
}

func TestScoreCommand_Flags(t *testing.T) {
	flag := scoreCmd.Flags().Lookup("council")
	require.NotNil(t, flag, "score command should have --council flag")
}

func TestImportCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"bundle", "xlsx", "sheet", "source"} {
		flag := importCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "import should have --%s flag", flagName)
	}
}
