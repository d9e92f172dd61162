package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProfileFile is the profile name under the user's home directory.
const ProfileFile = ".agenda.yaml"

// Profile is the persisted CLI state.
type Profile struct {
	BaseURL      string `yaml:"base_url"`
	Email        string `yaml:"email,omitempty"`
	AccessToken  string `yaml:"access_token,omitempty"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	DefaultView  string `yaml:"default_view,omitempty"`
	Timezone     string `yaml:"timezone,omitempty"`
	Color        *bool  `yaml:"color,omitempty"`
}

// DefaultProfile is used when no profile file exists yet.
func DefaultProfile() *Profile {
	return &Profile{BaseURL: "http://localhost:8080/api/v1", DefaultView: "week"}
}

// DefaultProfilePath resolves ~/.agenda.yaml.
func DefaultProfilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ProfileFile), nil
}

// LoadProfile reads path, falling back to defaults when it does not exist.
func LoadProfile(path string) (*Profile, error) {
	profile := DefaultProfile()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return profile, nil
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if profile.BaseURL == "" {
		profile.BaseURL = DefaultProfile().BaseURL
	}
	return profile, nil
}

// SaveProfile writes the profile readable only by its owner; it holds tokens.
func SaveProfile(path string, profile *Profile) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// ColorEnabled reports whether output should be coloured.
func (p *Profile) ColorEnabled() bool {
	return p.Color == nil || *p.Color
}
