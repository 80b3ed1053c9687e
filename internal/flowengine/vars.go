package flowengine

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/zoeflow/ragcore/internal/ragerr"
)

// GetVar reads a dotted-path value out of vars, e.g. "user.profile.name".
// Per spec's "dotted-path helper" design note, this is a thin gjson read
// over the vars map re-marshaled to JSON rather than a hand-rolled nested-
// map walker.
func GetVar(vars map[string]any, path string) (any, error) {
	raw, err := json.Marshal(vars)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.Internal, "flow: marshal vars", err)
	}
	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

// SetVar returns a copy of vars with path set to value, via an sjson write
// over the re-marshaled document.
func SetVar(vars map[string]any, path string, value any) (map[string]any, error) {
	raw, err := json.Marshal(vars)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.Internal, "flow: marshal vars", err)
	}
	updated, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.Validation, "flow: set var path "+path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(updated, &out); err != nil {
		return nil, ragerr.Wrap(ragerr.Internal, "flow: unmarshal vars", err)
	}
	return out, nil
}
