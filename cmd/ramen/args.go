package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ramentycoon/internal/game"
)

// buildAction turns `kind key=value ...` or a raw --args JSON object into a
// wire action. Values that parse as numbers or booleans are sent as such.
func buildAction(kind string, pairs []string, rawJSON string) (game.Action, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return game.Action{}, fmt.Errorf("action kind is required")
	}
	if rawJSON != "" && len(pairs) > 0 {
		return game.Action{}, fmt.Errorf("use either --args or key=value pairs, not both")
	}
	if rawJSON != "" {
		var probe map[string]any
		if err := json.Unmarshal([]byte(rawJSON), &probe); err != nil {
			return game.Action{}, fmt.Errorf("--args must be a JSON object: %w", err)
		}
		return game.Action{Kind: kind, Args: json.RawMessage(rawJSON)}, nil
	}
	if len(pairs) == 0 {
		return game.Action{Kind: kind}, nil
	}
	args := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, val, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return game.Action{}, fmt.Errorf("argument %q: want key=value", p)
		}
		args[key] = scalar(strings.TrimSpace(val))
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return game.Action{}, err
	}
	return game.Action{Kind: kind, Args: raw}, nil
}

func scalar(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
