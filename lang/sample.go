package lang

import (
	"fmt"

	"github.com/phonon-lang/phonon/frac"
	"github.com/phonon-lang/phonon/graph"
	"github.com/phonon-lang/phonon/patt"
	"github.com/phonon-lang/phonon/patt/mini"
)

// lowerSampleChain builds a Sample node from `s "pattern"` (or
// `sample "pattern"`) and folds a flattened `#`-chain of modifiers onto
// its Mods fields directly, since the trigger structure lives on the
// Sample node itself rather than on a wrapping effect node (spec.md
// §4.3 "combining structure from multiple modifiers").
func (lw *Lowerer) lowerSampleChain(base Apply, mods []Expr) (graph.Signal, error) {
	if len(base.Args) != 1 {
		return graph.Signal{}, fmt.Errorf("lang: %s expects exactly one pattern argument", base.Func)
	}
	str, ok := base.Args[0].(StringLit)
	if !ok {
		return graph.Signal{}, fmt.Errorf("lang: %s's argument must be a string pattern", base.Func)
	}
	pat, err := mini.Parse(str.Value)
	if err != nil {
		return graph.Signal{}, err
	}
	n := graph.NewSample(str.Value, pat, lw.bank, lw.g.SampleRate)
	id := lw.g.AddNode(n)

	for _, m := range mods {
		apply, ok := m.(Apply)
		if !ok {
			return graph.Signal{}, fmt.Errorf("lang: chained sample modifier must be a function application")
		}
		if err := lw.applySampleModifier(id, apply); err != nil {
			return graph.Signal{}, err
		}
	}
	return graph.FromNode(id), nil
}

func (lw *Lowerer) applySampleModifier(id graph.NodeId, apply Apply) error {
	args, err := lw.lowerArgs(apply.Args)
	if err != nil {
		return err
	}
	node := lw.g.Node(id)
	one := graph.Const(1)

	switch apply.Func {
	case "gain":
		node.Mods.Gain = arg(args, 0, one)
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModGain)
	case "pan":
		node.Mods.Pan = arg(args, 0, graph.Const(0))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModPan)
	case "speed":
		node.Mods.Speed = arg(args, 0, one)
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModSpeed)
	case "n":
		node.Mods.N = arg(args, 0, graph.Const(0))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModN)
	case "note":
		node.Mods.Note = arg(args, 0, graph.Const(0))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModNote)
	case "attack":
		node.Mods.Attack = arg(args, 0, graph.Const(0.001))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModAttack)
	case "release":
		node.Mods.Release = arg(args, 0, graph.Const(0.05))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModRelease)
	case "begin":
		node.Mods.Begin = arg(args, 0, graph.Const(0))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModBegin)
	case "end":
		node.Mods.End = arg(args, 0, one)
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModEnd)
	case "cut":
		node.Mods.Cut = arg(args, 0, graph.Const(0))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModCut)
	case "ar":
		node.Mods.Attack = arg(args, 0, graph.Const(0.001))
		node.Mods.Release = arg(args, 1, graph.Const(0.05))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModAttack, graph.ModRelease)
	case "envType":
		node.Mods.EnvType = arg(args, 0, graph.Const(0))
		node.Mods.ChainOrder = append(node.Mods.ChainOrder, graph.ModEnvType)
	case "loop":
		node.Mods.Loop = true
	case "unit":
		node.Mods.UnitMode = true
	default:
		return fmt.Errorf("lang: unknown sample modifier %q", apply.Func)
	}
	return nil
}

// transformStringPattern applies a named pattern transform (spec.md
// §6.1's `fast`/`slow`/`rev`/... catalogue, shared with the mini-
// notation combinators in patt) to a mini-notation string, used by
// `s "bd sn" $ fast 2`.
func transformStringPattern(src, fn string, args []Expr) (patt.Pattern[string], error) {
	base, err := mini.Parse(src)
	if err != nil {
		return patt.Pattern[string]{}, err
	}
	n0 := numArg(args, 0, 1)

	switch fn {
	case "fast":
		return patt.Fast(frac.FromFloat(n0), base), nil
	case "slow", "stretch":
		return patt.Slow(frac.FromFloat(n0), base), nil
	case "rev":
		return patt.Rev(base), nil
	case "degradeBy":
		return patt.DegradeBy(n0, base), nil
	case "stutter", "stut", "ply":
		return patt.Stutter(int(n0), base), nil
	case "chop":
		return patt.Chop(int(n0), base), nil
	case "scramble":
		return patt.Scramble(int(n0), base), nil
	case "palindrome", "mirror":
		return patt.Palindrome(base), nil
	case "linger":
		return patt.Linger(frac.FromFloat(n0), base), nil
	case "segment":
		return patt.Segment(frac.FromFloat(n0), base), nil
	case "every":
		return base, nil // requires a function argument `every` can't express as a plain number; identity fallback
	default:
		return base, nil
	}
}

func numArg(args []Expr, i int, def float64) float64 {
	if i < len(args) {
		if n, ok := args[i].(NumberLit); ok {
			return n.Value
		}
	}
	return def
}
