package lang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phonon-lang/phonon/graph"
	"github.com/phonon-lang/phonon/midi"
	"github.com/phonon-lang/phonon/patt"
	"github.com/phonon-lang/phonon/patt/mini"
)

// Lowerer compiles a parsed program onto a graph.Graph (spec.md §6.2
// "compiled to a directed acyclic signal graph"). Bus definitions may
// forward-reference a bus not yet lowered: such a reference lowers to
// graph.FromBus, and Graph.Finalize resolves it against the node ids
// registered with graph.DefineBus.
type Lowerer struct {
	g         *graph.Graph
	bank      graph.SampleBank
	midiQueue *midi.Queue
	busIDs    map[string]graph.NodeId
}

// NewLowerer builds a Lowerer targeting g, resolving sample names via
// bank and MIDI input via queue (either may be nil for a program that
// doesn't use them).
func NewLowerer(g *graph.Graph, bank graph.SampleBank, queue *midi.Queue) *Lowerer {
	return &Lowerer{g: g, bank: bank, midiQueue: queue, busIDs: make(map[string]graph.NodeId)}
}

// Lower compiles every statement onto the Lowerer's graph and finalizes
// it. Timing commands (resetCycles/setCycle/nudge) execute immediately
// against the graph rather than being deferred, matching their
// spec.md §6.1 role as one-shot transport commands.
func (lw *Lowerer) Lower(stmts []Stmt) error {
	for _, raw := range stmts {
		switch st := raw.(type) {
		case TempoStmt:
			lw.g.SetCPS(st.CPS)
		case BusDefStmt:
			sig, err := lw.lowerExpr(st.Expr)
			if err != nil {
				return fmt.Errorf("lang: bus %q: %w", st.Name, err)
			}
			id := lw.nodeIDFromSignal(sig)
			lw.busIDs[st.Name] = id
			lw.g.DefineBus(st.Name, id)
			if strings.HasPrefix(st.Name, "d") && len(st.Name) > 1 {
				if _, err := strconv.Atoi(st.Name[1:]); err == nil {
					lw.g.SetOutput(id) // `~d1`-style buses auto-route to output (spec.md §6.1)
				}
			}
		case OutStmt:
			sig, err := lw.lowerExpr(st.Expr)
			if err != nil {
				return fmt.Errorf("lang: out: %w", err)
			}
			lw.g.SetOutput(lw.nodeIDFromSignal(sig))
		case ResetCyclesStmt:
			lw.g.ResetCycles()
		case SetCycleStmt:
			lw.g.SetCycle(st.N)
		case NudgeStmt:
			lw.g.Nudge(st.N)
		}
	}
	return lw.g.Finalize()
}

// lowerMidiBusRef handles `~midi` (any channel) and `~midiN` (channel N
// only), spec.md §6.4's shorthand for the most recently held note's
// frequency.
func (lw *Lowerer) lowerMidiBusRef(name string) (graph.Signal, bool) {
	if name == "midi" {
		n := graph.NewMidiInput(lw.midiQueue, -1)
		return graph.FromNode(lw.g.AddNode(n)), true
	}
	if strings.HasPrefix(name, "midi") {
		if ch, err := strconv.Atoi(name[len("midi"):]); err == nil {
			n := graph.NewMidiInput(lw.midiQueue, ch)
			return graph.FromNode(lw.g.AddNode(n)), true
		}
	}
	return graph.Signal{}, false
}

// nodeIDFromSignal wraps a bare constant/pattern Signal in a Constant
// node so callers needing a NodeId (bus targets, output) always have
// one, while Signals that already reference a node pass through.
func (lw *Lowerer) nodeIDFromSignal(sig graph.Signal) graph.NodeId {
	if sig.Kind == graph.SignalNodeRef {
		return sig.Node
	}
	return lw.g.AddNode(graph.NewConstant(sig))
}

func (lw *Lowerer) lowerExpr(e Expr) (graph.Signal, error) {
	switch ex := e.(type) {
	case NumberLit:
		return graph.Const(float32(ex.Value)), nil
	case StringLit:
		return lw.lowerNumericPatternString(ex.Value)
	case BusRef:
		if id, ok := lw.busIDs[ex.Name]; ok {
			return graph.FromNode(id), nil
		}
		if sig, ok := lw.lowerMidiBusRef(ex.Name); ok {
			return sig, nil
		}
		return graph.FromBus(ex.Name), nil
	case ListLit:
		return lw.lowerStack(ex.Items)
	case BinOp:
		return lw.lowerBinOp(ex)
	case Apply:
		return lw.lowerApply(ex)
	case Chain:
		return lw.lowerChain(ex)
	case DollarApply:
		return lw.lowerDollar(ex)
	default:
		return graph.Signal{}, fmt.Errorf("lang: unsupported expression %T", e)
	}
}

// lowerNumericPatternString compiles a mini-notation string into a
// numeric control pattern, mapping each token through parseNumericToken
// (plain numbers or note names like `c4`), for uses like `note "c4 e4"`
// or a bare pattern driving a filter cutoff (spec.md §4.1.3, §6.1).
func (lw *Lowerer) lowerNumericPatternString(src string) (graph.Signal, error) {
	strPat, err := mini.Parse(src)
	if err != nil {
		return graph.Signal{}, err
	}
	numPat := patt.Map(strPat, func(tok string) float32 {
		return parseNumericToken(tok)
	})
	return graph.FromPattern(numPat), nil
}

func (lw *Lowerer) lowerStack(items []Expr) (graph.Signal, error) {
	var ids []graph.NodeId
	for _, it := range items {
		sig, err := lw.lowerExpr(it)
		if err != nil {
			return graph.Signal{}, err
		}
		ids = append(ids, lw.nodeIDFromSignal(sig))
	}
	sum := ids[0]
	for _, id := range ids[1:] {
		sum = lw.g.AddNode(graph.NewAdd(graph.FromNode(sum), graph.FromNode(id)))
	}
	return graph.FromNode(sum), nil
}

func (lw *Lowerer) lowerBinOp(b BinOp) (graph.Signal, error) {
	left, err := lw.lowerExpr(b.Left)
	if err != nil {
		return graph.Signal{}, err
	}
	right, err := lw.lowerExpr(b.Right)
	if err != nil {
		return graph.Signal{}, err
	}
	var n graph.SignalNode
	switch b.Op {
	case '+':
		n = graph.NewAdd(left, right)
	case '-':
		n = graph.NewSub(left, right)
	case '*':
		n = graph.NewMul(left, right)
	case '/':
		n = graph.NewDiv(left, right)
	default:
		return graph.Signal{}, fmt.Errorf("lang: unknown operator %q", b.Op)
	}
	return graph.FromNode(lw.g.AddNode(n)), nil
}

func (lw *Lowerer) lowerDollar(d DollarApply) (graph.Signal, error) {
	if d.Left == nil {
		// `out $ expr`: the remainder of the line is the output expr.
		inner := Apply{Func: d.Func, Args: d.Args}
		return lw.lowerExpr(inner)
	}
	leftSig, err := lw.lowerExpr(d.Left)
	if err != nil {
		return graph.Signal{}, err
	}
	return lw.lowerTransform(leftSig, d.Left, d.Func, d.Args)
}

// lowerChain flattens a `#`-chain into [base, mod1, mod2, ...] (see
// parseChain for how the parse tree nests) and, when the base resolves
// to a Sample node, applies each
// modifier to that node's Mods fields directly rather than wrapping it
// in another effect node (spec.md §4.3 "combining structure from
// multiple modifiers").
func (lw *Lowerer) lowerChain(c Chain) (graph.Signal, error) {
	links := flattenChain(c)
	base := links[0]
	mods := links[1:]

	if apply, ok := base.(Apply); ok && (apply.Func == "s" || apply.Func == "sample") {
		return lw.lowerSampleChain(apply, mods)
	}

	sig, err := lw.lowerExpr(base)
	if err != nil {
		return graph.Signal{}, err
	}
	for _, m := range mods {
		apply, ok := m.(Apply)
		if !ok {
			return graph.Signal{}, fmt.Errorf("lang: chained modifier must be a function application")
		}
		sig, err = lw.lowerEffectApply(sig, apply)
		if err != nil {
			return graph.Signal{}, err
		}
	}
	return sig, nil
}

func flattenChain(e Expr) []Expr {
	var out []Expr
	cur := e
	for {
		if c, ok := cur.(Chain); ok {
			out = append(out, c.Left)
			cur = c.Right
		} else {
			out = append(out, cur)
			return out
		}
	}
}

// lowerEffectApply lowers a chained effect/filter Apply, injecting
// leftSig as the node's implicit first (input) argument: `a # lpf 800
// 0.7` means `lpf(a, 800, 0.7)` (spec.md §6.1 "a # b ... semantically
// b(a)").
func (lw *Lowerer) lowerEffectApply(leftSig graph.Signal, apply Apply) (graph.Signal, error) {
	args, err := lw.lowerArgs(apply.Args)
	if err != nil {
		return graph.Signal{}, err
	}
	n, err := lw.buildNode(apply.Func, append([]graph.Signal{leftSig}, args...))
	if err != nil {
		return graph.Signal{}, err
	}
	return graph.FromNode(lw.g.AddNode(n)), nil
}

// lowerTransform applies a `$`-style pattern transform. Since patt's
// combinators are generic Go functions rather than graph nodes, this
// only supports transforms over Sample nodes' own trigger pattern
// (common usage: `s "bd sn" $ fast 2`); transforms over a bare numeric
// signal fall back to treating `$` as ordinary function application.
func (lw *Lowerer) lowerTransform(leftSig graph.Signal, leftExpr Expr, fn string, args []Expr) (graph.Signal, error) {
	if apply, ok := leftExpr.(Apply); ok && (apply.Func == "s" || apply.Func == "sample") && len(apply.Args) == 1 {
		if str, ok := apply.Args[0].(StringLit); ok {
			pat, err := transformStringPattern(str.Value, fn, args)
			if err != nil {
				return graph.Signal{}, err
			}
			n := graph.NewSample(str.Value, pat, lw.bank, lw.g.SampleRate)
			return graph.FromNode(lw.g.AddNode(n)), nil
		}
	}
	return lw.lowerEffectApply(leftSig, Apply{Func: fn, Args: args})
}

func (lw *Lowerer) lowerArgs(exprs []Expr) ([]graph.Signal, error) {
	out := make([]graph.Signal, len(exprs))
	for i, e := range exprs {
		sig, err := lw.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = sig
	}
	return out, nil
}

// lowerScale special-cases `scale degree-pattern scale-name root`
// (spec.md §6.1): the scale-name argument is a bare identifier, not a
// numeric signal, so it can't go through the ordinary lowerArgs path.
func (lw *Lowerer) lowerScale(apply Apply) (graph.Signal, error) {
	if len(apply.Args) < 2 {
		return graph.Signal{}, fmt.Errorf("lang: scale requires degree-pattern and scale-name")
	}
	degree, err := lw.lowerExpr(apply.Args[0])
	if err != nil {
		return graph.Signal{}, err
	}
	nameApply, ok := apply.Args[1].(Apply)
	if !ok || len(nameApply.Args) != 0 {
		return graph.Signal{}, fmt.Errorf("lang: scale's second argument must be a bare scale name")
	}
	root := graph.Const(60)
	if len(apply.Args) >= 3 {
		root, err = lw.lowerExpr(apply.Args[2])
		if err != nil {
			return graph.Signal{}, err
		}
	}
	n := graph.NewScale(degree, root, nameApply.Func)
	return graph.FromNode(lw.g.AddNode(n)), nil
}

func (lw *Lowerer) lowerApply(apply Apply) (graph.Signal, error) {
	if apply.Func == "s" || apply.Func == "sample" {
		return lw.lowerSampleChain(apply, nil)
	}
	if apply.Func == "scale" {
		return lw.lowerScale(apply)
	}
	if apply.Func == "midi" {
		channel := -1
		if len(apply.Args) > 0 {
			if n, ok := apply.Args[0].(NumberLit); ok {
				channel = int(n.Value)
			}
		}
		n := graph.NewMidiInput(lw.midiQueue, channel)
		return graph.FromNode(lw.g.AddNode(n)), nil
	}
	args, err := lw.lowerArgs(apply.Args)
	if err != nil {
		return graph.Signal{}, err
	}
	n, err := lw.buildNode(apply.Func, args)
	if err != nil {
		return graph.Signal{}, err
	}
	return graph.FromNode(lw.g.AddNode(n)), nil
}
