package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/jsonutil"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// globalStateTool is the always-available Completion tool that reads or
// mutates a run's vars through the dotted-path helpers, independent of any
// connected tool-like node.
type globalStateTool struct{}

func newGlobalStateTool() flowengine.Tool { return globalStateTool{} }

func (globalStateTool) Name() string { return "global_state" }

func (globalStateTool) Description() string {
	return "Get or set a value in the flow's shared variable state by dotted path."
}

func (globalStateTool) Schema() map[string]any {
	return jsonutil.MustMapDefSchemaOf(struct {
		Action string `json:"action" jsonschema:"enum=set,enum=get" jsonschema_description:"Whether to read or write the path."`
		Path   string `json:"path" jsonschema_description:"Dotted path into the shared variable state."`
		Value  any    `json:"value,omitempty" jsonschema_description:"Value to write, required when action is set."`
	}{})
}

func (globalStateTool) Call(ctx context.Context, env *flowengine.Env, state *flowengine.State, args map[string]any) (string, error) {
	action, _ := args["action"].(string)
	path, _ := args["path"].(string)
	if path == "" {
		return "", ragerr.New(ragerr.Validation, "flow: global_state requires a \"path\"")
	}

	var out string
	var callErr error
	state.WithVarsLock(func() {
		switch action {
		case "get":
			v, err := flowengine.GetVar(state.Vars, path)
			if err != nil {
				callErr = err
				return
			}
			out = stringifyVar(v)
		case "set":
			vars, err := flowengine.SetVar(state.Vars, path, args["value"])
			if err != nil {
				callErr = err
				return
			}
			state.Vars = vars
			out = "ok"
		default:
			callErr = ragerr.Newf(ragerr.Validation, "flow: global_state action must be \"set\" or \"get\", got %q", action)
		}
	})
	return out, callErr
}

func stringifyVar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(raw)
	}
}
