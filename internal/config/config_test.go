package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/paratest", GlobalConfigDir())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/dev")
	assert.Equal(t, "/home/dev/.config/paratest", GlobalConfigDir())
	assert.True(t, strings.HasSuffix(GlobalConfigPath(), "config.json"))
}

func TestNewDefaults(t *testing.T) {
	cfg := NewDefaults()

	assert.Equal(t, 4, cfg.Defaults.Concurrency)
	assert.False(t, cfg.Defaults.ContinueOnFailure)
	assert.Equal(t, "angular.json", cfg.Defaults.Workspace)
	assert.Equal(t, "ng", cfg.Command.Adapter)
	assert.NoError(t, cfg.Validate())
}

func TestParseConcurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"8", 8, false},
		{" 3 ", 3, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"four", 0, true},
		{"", 0, true},
		{"2.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConcurrency(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConcurrency)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := NewDefaults()
	cfg.Defaults.Concurrency = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConcurrency)

	cfg = NewDefaults()
	cfg.Defaults.Timeout = -1
	assert.Error(t, cfg.Validate())

	cfg = NewDefaults()
	cfg.Command = CommandConfig{Adapter: "custom"}
	assert.Error(t, cfg.Validate())

	cfg.Command.Binary = "nx"
	assert.NoError(t, cfg.Validate())

	cfg.Command.Adapter = "jest"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")

	data := `{
		"defaults": {"concurrency": 2, "timeout": 300},
		"command": {"adapter": "ng", "binary": "npx"}
	}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o600))

	cfg, err := LoadFromFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Defaults.Concurrency)
	assert.Equal(t, 300, cfg.Defaults.Timeout)
	assert.Equal(t, "npx", cfg.Command.Binary)
	assert.Equal(t, "angular.json", cfg.Defaults.Workspace) // default preserved
}

func TestLoadFromFileUnsafePermissions(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{}`), 0o600))
	require.NoError(t, os.Chmod(cfgPath, 0o666))

	_, err := LoadFromFile(cfgPath)
	assert.ErrorContains(t, err, "unsafe permissions")
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := NewDefaults()
	cfg.Defaults.ContinueOnFailure = true
	cfg.Command.Args = []string{"--code-coverage"}

	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	info, _ := os.Stat(path)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadProjectConfigJSON(t *testing.T) {
	pc, err := LoadProjectConfig("/nonexistent/path")
	assert.NoError(t, err)
	assert.Nil(t, pc)

	dir := t.TempDir()
	data := `{"defaults": {"concurrency": 6, "outputDir": "./reports"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".paratest.json"), []byte(data), 0o600))

	pc, err = LoadProjectConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.Equal(t, 6, *pc.Defaults.Concurrency)
	assert.Equal(t, "./reports", *pc.Defaults.OutputDir)
}

func TestLoadProjectConfigYAML(t *testing.T) {
	dir := t.TempDir()
	data := `defaults:
  continueOnFailure: true
  timeout: 90
command:
  adapter: custom
  binary: nx
  args: ["test", "{project}", "--ci"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".paratest.yaml"), []byte(data), 0o600))

	pc, err := LoadProjectConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.True(t, *pc.Defaults.ContinueOnFailure)
	assert.Equal(t, 90, *pc.Defaults.Timeout)
	assert.Equal(t, []string{"test", "{project}", "--ci"}, pc.Command.Args)
}

func TestSaveProjectConfig(t *testing.T) {
	dir := t.TempDir()
	concurrency := 3
	path, err := SaveProjectConfig(dir, &ProjectConfig{
		Defaults: &ProjectDefaults{Concurrency: &concurrency},
		Command:  &CommandConfig{Adapter: "ng", Binary: "npx"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".paratest.yaml"), path)

	pc, err := LoadProjectConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.Equal(t, 3, *pc.Defaults.Concurrency)
	assert.Nil(t, pc.Defaults.Timeout)
	assert.Equal(t, "npx", pc.Command.Binary)
	assert.Nil(t, pc.Command.Args)
}

func TestLoadProjectConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".paratest.json"), []byte(`{`), 0o600))
	_, err := LoadProjectConfig(dir)
	assert.Error(t, err)
}

func TestMergeWithProject(t *testing.T) {
	cfg := NewDefaults()

	n := 8
	cont := true
	pc := &ProjectConfig{
		Defaults: &ProjectDefaults{Concurrency: &n, ContinueOnFailure: &cont},
		Command:  &CommandConfig{Binary: "npx"},
	}

	MergeWithProject(cfg, pc)
	assert.Equal(t, 8, cfg.Defaults.Concurrency)
	assert.True(t, cfg.Defaults.ContinueOnFailure)
	assert.Equal(t, "npx", cfg.Command.Binary)
	assert.Equal(t, "ng", cfg.Command.Adapter) // unchanged
	assert.Equal(t, "angular.json", cfg.Defaults.Workspace)
}

func TestMergeWithProjectNil(t *testing.T) {
	cfg := NewDefaults()
	MergeWithProject(cfg, nil)
	assert.Equal(t, NewDefaults(), cfg)
}

func TestLoadMerged(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	data := `{"defaults": {"outputDir": "./custom/output"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".paratest.json"), []byte(data), 0o600))

	cfg, err := LoadMerged(dir)
	require.NoError(t, err)
	assert.Equal(t, "./custom/output", cfg.Defaults.OutputDir)
	assert.Equal(t, 4, cfg.Defaults.Concurrency)
}
