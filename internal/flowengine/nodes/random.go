package nodes

import (
	"context"
	"math/rand/v2"
	"strconv"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/jsonutil"
)

func randIntN(env *flowengine.Env, n int) int {
	if env.RandIntN != nil {
		return env.RandIntN(n)
	}
	return rand.IntN(n)
}

// CoinFlip returns "heads" or "tails" with equal probability.
type CoinFlip struct{}

func (CoinFlip) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	return flowengine.ExecResult{Payload: flipCoin(env)}, nil
}

func flipCoin(env *flowengine.Env) string {
	if randIntN(env, 2) == 0 {
		return "heads"
	}
	return "tails"
}

type coinFlipTool struct{}

func newCoinFlipTool(flowengine.Node) flowengine.Tool { return coinFlipTool{} }

func (coinFlipTool) Name() string        { return "coin_flip" }
func (coinFlipTool) Description() string { return "Flip a fair coin, returning heads or tails." }
func (coinFlipTool) Schema() map[string]any {
	return jsonutil.MustMapDefSchemaOf(struct{}{})
}

func (coinFlipTool) Call(ctx context.Context, env *flowengine.Env, state *flowengine.State, args map[string]any) (string, error) {
	return flipCoin(env), nil
}

// DiceRoll returns an integer in [1, sides] (default 6 sides).
type DiceRoll struct{}

func (DiceRoll) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	sides := configInt(node.Config["sides"], 6)
	return flowengine.ExecResult{Payload: rollDice(env, sides)}, nil
}

func rollDice(env *flowengine.Env, sides int) int {
	if sides <= 0 {
		sides = 6
	}
	return randIntN(env, sides) + 1
}

type diceRollTool struct {
	sides int
}

func newDiceRollTool(node flowengine.Node) flowengine.Tool {
	return diceRollTool{sides: configInt(node.Config["sides"], 6)}
}

func (t diceRollTool) Name() string        { return "dice_roll" }
func (t diceRollTool) Description() string { return "Roll an n-sided die and return the result." }
func (t diceRollTool) Schema() map[string]any {
	return jsonutil.MustMapDefSchemaOf(struct {
		Sides int `json:"sides,omitempty" jsonschema_description:"Number of sides, defaults to 6."`
	}{})
}

func (t diceRollTool) Call(ctx context.Context, env *flowengine.Env, state *flowengine.State, args map[string]any) (string, error) {
	sides := t.sides
	if v, ok := args["sides"]; ok {
		sides = configInt(v, sides)
	}
	return strconv.Itoa(rollDice(env, sides)), nil
}
