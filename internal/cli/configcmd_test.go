package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeWithConfig runs the root command against a real config file.
func executeWithConfig(t *testing.T, configYAML string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigValidate_Valid(t *testing.T) {
	out, err := executeWithConfig(t, `
user_info:
  email: packager@anaconda.com
token:
  github: ghp_x
`, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "config is valid")
	assert.Contains(t, out, "github token:  set")
	assert.Contains(t, out, "jira token:    (unset)")
}

func TestConfigValidate_InvalidExitsNonZero(t *testing.T) {
	out, err := executeWithConfig(t, `
user_info:
  email: not-an-email
`, "config", "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "C102")
}

func TestConfigValidate_JSON(t *testing.T) {
	out, err := executeWithConfig(t, `
user_info:
  email: packager@anaconda.com
`, "--format", "json", "config", "validate")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "packager@anaconda.com", data["email"])
	assert.Equal(t, false, data["has_github_token"])
}

func TestConfigValidate_UnreadableFile(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "bad.yaml"), "config", "validate"})

	// Missing file falls back to env-only config; with no env set the
	// email check fails.
	t.Setenv("APU_EMAIL", "")
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
