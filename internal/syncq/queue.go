package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"ramentycoon/internal/game"
)

// Entry is a player action waiting to be applied. Local entries target a
// save slot and run before the next advance; remote entries target an API
// session and are replayed by sync.
type Entry struct {
	Target         string      `json:"target"`
	Remote         bool        `json:"remote,omitempty"`
	Action         game.Action `json:"action"`
	IdempotencyKey string      `json:"idempotency_key"`
	QueuedAt       time.Time   `json:"queued_at"`
}

func queuePath(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load(dir string) ([]Entry, error) {
	path, err := queuePath(dir)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Entry{}, nil
	}
	var out []Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(dir string, entries []Entry) error {
	path, err := queuePath(dir)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(dir string, e Entry) error {
	entries, err := Load(dir)
	if err != nil {
		return err
	}
	if e.QueuedAt.IsZero() {
		e.QueuedAt = time.Now().UTC()
	}
	entries = append(entries, e)
	return Save(dir, entries)
}

// Take removes and returns the entries for one target, oldest first.
func Take(dir, target string, remote bool) ([]Entry, error) {
	entries, err := Load(dir)
	if err != nil {
		return nil, err
	}
	var taken, rest []Entry
	for _, e := range entries {
		if e.Target == target && e.Remote == remote {
			taken = append(taken, e)
			continue
		}
		rest = append(rest, e)
	}
	if len(taken) == 0 {
		return nil, nil
	}
	if err := Save(dir, rest); err != nil {
		return nil, err
	}
	return taken, nil
}

// Requeue puts entries back at the front of the queue.
func Requeue(dir string, failed []Entry) error {
	if len(failed) == 0 {
		return nil
	}
	entries, err := Load(dir)
	if err != nil {
		return err
	}
	return Save(dir, append(append([]Entry(nil), failed...), entries...))
}
