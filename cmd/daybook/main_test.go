package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/daybook/pkg/core"
)

// run executes the CLI with args against a fresh fs store per test.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		saveJSON, openJSON = false, false
		saveReflection, saveLearning, saveHighlight = "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	// An empty value disables config file discovery.
	t.Setenv("DAYBOOK_CONFIG", "")
	t.Setenv("DAYBOOK_ADAPTER", "fs")
	t.Setenv("DAYBOOK_FS_PATH", filepath.Join(t.TempDir(), "notes"))
}

func TestCLI_SaveAndOpen(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "save", "kgiri", "2024-02-29",
		"--reflection", "Leap day.",
		"--learning", "February can have 29 days.",
		"--highlight", "Carpe diem.")
	require.NoError(t, err)
	assert.Contains(t, out, "Note for kgiri on 2024-02-29 saved")

	out, err = run(t, "open", "kgiri", "2024-02-29")
	require.NoError(t, err)
	assert.Contains(t, out, "How was your day?\nLeap day.")
	assert.Contains(t, out, "February can have 29 days.")

	out, err = run(t, "open", "kgiri", "2024-02-29", "--json")
	require.NoError(t, err)
	var view noteJSON
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "kgiri", view.User)
	assert.Equal(t, "Carpe diem.", view.Fields.Highlight)
	assert.Equal(t, "kgiri/2024-02-29", view.ContainerID)
}

func TestCLI_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "open", "mallory", "2024-01-01")
	assert.ErrorIs(t, err, core.ErrRejected)

	_, err = run(t, "save", "kgiri", "2024-01-01", "--reflection", "only one")
	assert.ErrorIs(t, err, core.ErrIncompleteNote)

	_, err = run(t, "open", "kgiri", "2024-13-01")
	assert.Error(t, err)

	_, err = run(t, "open", "kgiri", "2024-01-02")
	assert.ErrorIs(t, err, core.ErrNoteNotFound)
}

func TestCLI_ResolveAndState(t *testing.T) {
	setupEnv(t)
	t.Setenv("DAYBOOK_METRICS", "true")

	out, err := run(t, "resolve", "rgiri", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "user\trgiri\ndate\trgiri/2024-03-01\n", out)

	out, err = run(t, "state")
	require.NoError(t, err)
	var state map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "service", state["component"])
	assert.Contains(t, state, "metrics")
}

func TestCLI_Version(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "daybook version "))
}
