package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_MissingFile(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Settings{}, s)
}

func TestSettings_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	want := Settings{
		Listen:        ":9000",
		WebhookSecret: "s3cret",
		Sink:          "stdout",
		Store:         "sqlite",
		Tokens:        map[string]string{"github": "ghp_x"},
	}
	require.NoError(t, want.Save(dir))

	info, err := os.Stat(filepath.Join(dir, SettingsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "ghp_x", got.Token("github"))
	assert.Empty(t, got.Token("frameio"))
}

func TestLoadSettings_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte("listen = "), 0600))
	_, err := LoadSettings(dir)
	assert.Error(t, err)
}
