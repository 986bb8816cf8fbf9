package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClaudeDesktopConfig_Missing(t *testing.T) {
	config, err := LoadClaudeDesktopConfig(filepath.Join(t.TempDir(), "none.json"))

	require.NoError(t, err)
	assert.Empty(t, config.MCPServers)
}

func TestConfigureClaudeDesktop(t *testing.T) {
	dir := t.TempDir()
	claudePath := filepath.Join(dir, "Claude", "claude_desktop_config.json")
	binary := filepath.Join(dir, "tfgreport")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	existing := `{"theme":"dark","mcpServers":{"other":{"command":"/bin/other"}}}`
	require.NoError(t, os.MkdirAll(filepath.Dir(claudePath), 0755))
	require.NoError(t, os.WriteFile(claudePath, []byte(existing), 0644))

	path, err := ConfigureClaudeDesktop(Options{BinaryPath: binary, ConfigPath: claudePath})
	require.NoError(t, err)
	assert.Equal(t, claudePath, path)

	data, err := os.ReadFile(claudePath)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, `"dark"`, string(doc["theme"]))

	config, err := LoadClaudeDesktopConfig(claudePath)
	require.NoError(t, err)
	assert.Equal(t, "/bin/other", config.MCPServers["other"].Command)
	assert.Equal(t, MCPServerConfig{Command: binary, Args: []string{"mcp"}}, config.MCPServers[ServerName])

	status, err := GetStatus(claudePath)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Empty(t, status.Issues)
}

func TestConfigureClaudeDesktop_WithServerConfig(t *testing.T) {
	dir := t.TempDir()
	claudePath := filepath.Join(dir, "claude_desktop_config.json")
	serverConfig := filepath.Join(dir, "config.yaml")

	_, err := ConfigureClaudeDesktop(Options{BinaryPath: "/opt/tfgreport", ConfigFile: serverConfig, ConfigPath: claudePath})
	require.NoError(t, err)

	config, err := LoadClaudeDesktopConfig(claudePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"--config", serverConfig, "mcp"}, config.MCPServers[ServerName].Args)

	status, err := GetStatus(claudePath)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "not found")
}

func TestGetStatus_NotConfigured(t *testing.T) {
	status, err := GetStatus(filepath.Join(t.TempDir(), "claude_desktop_config.json"))

	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Len(t, status.Issues, 1)
}

func TestLoadClaudeDesktopConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadClaudeDesktopConfig(path)
	assert.Error(t, err)
}

func TestGetClaudeDesktopConfigPath_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is linux only")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	path, err := GetClaudeDesktopConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/Claude/claude_desktop_config.json", path)
}
