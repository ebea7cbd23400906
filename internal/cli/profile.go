package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const DefaultSlot = "default"

var slotRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Profile remembers which local slot and which API session the CLI acts on
// between invocations.
type Profile struct {
	Slot     string `json:"slot"`
	RemoteID string `json:"remote_id,omitempty"`
}

func ValidateSlot(slot string) (string, error) {
	slot = strings.TrimSpace(slot)
	if !slotRE.MatchString(slot) {
		return "", fmt.Errorf("slot %q: use 1-32 letters, digits, '-' or '_'", slot)
	}
	return slot, nil
}

func profilePath(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

func SaveProfile(dir string, p Profile) error {
	path, err := profilePath(dir)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

// LoadProfile returns the saved profile, or one pointing at the default
// slot when none was written yet.
func LoadProfile(dir string) (Profile, error) {
	path, err := profilePath(dir)
	if err != nil {
		return Profile{}, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{Slot: DefaultSlot}, nil
		}
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(p.Slot) == "" {
		p.Slot = DefaultSlot
	}
	return p, nil
}

// RemoteSession returns the API session id or an error telling the user how
// to get one.
func (p Profile) RemoteSession() (string, error) {
	if strings.TrimSpace(p.RemoteID) == "" {
		return "", fmt.Errorf("no remote session: run `ramen remote new` or `ramen remote use ID`")
	}
	return p.RemoteID, nil
}
