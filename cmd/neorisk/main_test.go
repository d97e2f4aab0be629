package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/setup"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "neorisk (devel)\n", out)
}

func TestAssess_Batch(t *testing.T) {
	out, err := execute(t, "", "assess", "7.25,2,5,1800,4.8,0,1")
	require.NoError(t, err)

	assert.Contains(t, out, "Total score: 16 of 40")
	assert.Contains(t, out, "Diagnosis: High risk")
}

func TestAssess_SeparatorVariants(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"trailing commas", []string{"7.25,", "2,", "5,", "1800,", "4.8,", "0,", "1"}},
		{"spaces only", []string{"7.25", "2", "5", "1800", "4.8", "0", "1"}},
		{"stray comma token", []string{"7.25,", ",", "2", "5", "1800", "4.8", "0", "1"}},
		{"quoted line with blanks", []string{"7.25, , 2,,,5, 1800 4.8 0 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"assess"}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "Total score: 16 of 40")
		})
	}
}

func TestAssess_FlagsJSON(t *testing.T) {
	out, err := execute(t, "", "assess",
		"--ph", "7.25", "--age", "2", "--apgar", "5", "--weight", "1800",
		"--pao2", "4.8", "--malformations", "0", "--intubation", "1", "--json")
	require.NoError(t, err)

	var result domain.AssessmentResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 16, result.Score)
	assert.InDelta(t, 0.1625, result.Probability, 1e-4)
}

func TestAssess_Rejected(t *testing.T) {
	_, err := execute(t, "", "assess", "--ph", "7.25")
	assert.ErrorIs(t, err, domain.ErrIncompleteInput)

	_, err = execute(t, "", "assess", "8.1,2,5,1800,4.8,0,1")
	var outOfRange *domain.ValueOutOfRangeError
	assert.ErrorAs(t, err, &outOfRange)
}

func TestChat(t *testing.T) {
	out, err := execute(t, "7.25\n2\n5\n1800\n4.8\n0\n1\nquit\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "Next parameter")
	assert.Contains(t, out, "Total score: 16 of 40")
}

func TestValidateConfig(t *testing.T) {
	out, err := execute(t, "", "validate-config")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "scores 0..40")
	assert.Contains(t, out, "High risk")

	broken := filepath.Join(t.TempDir(), "risk.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0644))
	_, err = execute(t, "", "validate-config", broken)

	var loadErr *domain.ConfigLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestSetupClaudeDesktop(t *testing.T) {
	dir := t.TempDir()
	claudeConfig := filepath.Join(dir, "claude_desktop_config.json")
	binary := filepath.Join(dir, setup.BinaryName)
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	out, err := execute(t, "", "setup", "claude-desktop", "--binary", binary, "--claude-config", claudeConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered")

	out, err = execute(t, "", "setup", "status", "--claude-config", claudeConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered: true")
}
