package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfileMissingFileUsesDefaults(t *testing.T) {
	profile, err := LoadProfile(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1", profile.BaseURL)
	assert.Equal(t, "week", profile.DefaultView)
	assert.True(t, profile.ColorEnabled())
}

func TestSaveProfileRoundTripAndMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProfileFile)
	off := false
	require.NoError(t, SaveProfile(path, &Profile{
		BaseURL:     "https://agenda.example.com/api/v1",
		Email:       "desk@example.com",
		AccessToken: "token",
		DefaultView: "day",
		Color:       &off,
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://agenda.example.com/api/v1", profile.BaseURL)
	assert.Equal(t, "token", profile.AccessToken)
	assert.Equal(t, "day", profile.DefaultView)
	assert.False(t, profile.ColorEnabled())
}

func TestLoadProfileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProfileFile)
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated"), 0o600))
	_, err := LoadProfile(path)
	assert.Error(t, err)
}
