package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, expected := range []string{"setup", "provision", "prepare", "run", "communities", "pipeline", "version"} {
		assert.True(t, names[expected], "command %s not registered", expected)
	}
}

func TestRunCommandFlagDefaults(t *testing.T) {
	defaults := map[string]string{}
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		defaults[f.Name] = f.DefValue
	})

	assert.Equal(t, "", defaults["algorithm"])
	assert.Equal(t, "false", defaults["show-config"])
}

func TestPrepareCommandFlags(t *testing.T) {
	require.NoError(t, prepareCmd.Flags().Set("dry-run", "true"))
	assert.True(t, prepareDryRun)

	// reset for other tests
	require.NoError(t, prepareCmd.Flags().Set("dry-run", "false"))
	prepareDryRun = false
}
