package graph

import "fmt"

// TimingMode selects how cycle position is derived. TimingSampleClock
// computes it from the sample counter alone (render/offline mode, exactly
// reproducible). TimingWallClock computes it from a reference cycle
// position plus the samples processed since that reference was taken, so
// SetCPS, SetCycle and Nudge re-anchor the reference; no system clock is
// read in either mode. spec.md §4.2.4 "Timing".
type TimingMode uint8

const (
	TimingSampleClock TimingMode = iota
	TimingWallClock
)

// Graph is the block-rate signal DAG (spec.md §3 "Graph"). Nodes are
// stored in a flat arena addressed by NodeId; a node's Signal inputs
// reference other nodes by id, by late-bound bus name (resolved once in
// Finalize), by a sampled Pattern, or by a bare constant.
type Graph struct {
	nodes []SignalNode
	buses map[string]NodeId
	out   NodeId
	hasOut bool

	SampleRate float64
	cps        float64 // cycles per second

	mode         TimingMode
	sampleTick   uint64  // samples processed since start, drives TimingSampleClock
	wallCycleRef float64 // cycle position TimingWallClock is offset from
	wallTickRef  uint64

	cache     []float32
	cacheTick []uint64
	visiting  []bool
	curTick   uint64
}

// NewGraph creates an empty graph at the given sample rate and initial
// tempo (cycles per second).
func NewGraph(sampleRate float64, cps float64) *Graph {
	return &Graph{
		nodes:      nil,
		buses:      make(map[string]NodeId),
		SampleRate: sampleRate,
		cps:        cps,
		mode:       TimingSampleClock,
	}
}

// AddNode appends a node to the arena and returns its id. Callers build
// up a SignalNode value (see node.go's Kind-specific field groups) and
// hand it here once its own Signal inputs are ready; forward references
// to not-yet-added nodes should go through DefineBus instead.
func (g *Graph) AddNode(n SignalNode) NodeId {
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return id
}

// Node returns a pointer to a node's storage, for callers that need to
// mutate a node after construction (e.g. supplying a pattern deferred
// until parse time). Panics on an out-of-range id, which indicates a
// wiring bug in the caller rather than recoverable user error.
func (g *Graph) Node(id NodeId) *SignalNode {
	return &g.nodes[id]
}

// DefineBus names a node so other nodes can reference it via FromBus
// before the graph is fully built, e.g. forward references created
// while lowering mutually-referencing DSL statements (spec.md §4.2.3).
func (g *Graph) DefineBus(name string, id NodeId) {
	g.buses[name] = id
}

// SetOutput marks which node's value is written to the audio stream.
func (g *Graph) SetOutput(id NodeId) {
	g.out = id
	g.hasOut = true
}

// SetTimingMode switches between sample-clock and wall-clock cycle
// position tracking (spec.md §4.2.4).
func (g *Graph) SetTimingMode(m TimingMode) { g.mode = m }

// CPS returns the current tempo in cycles per second.
func (g *Graph) CPS() float64 { return g.cps }

// Finalize resolves every SignalBus reference to a concrete NodeId and
// detects reference cycles, which would otherwise recurse forever in
// evalNode. It must run once after the graph is fully built and before
// the first ProcessSample call.
func (g *Graph) Finalize() error {
	if !g.hasOut {
		return fmt.Errorf("graph: no output node set")
	}
	resolve := func(sig *Signal) error {
		if sig.Kind != SignalBus {
			return nil
		}
		id, ok := g.buses[sig.Bus]
		if !ok {
			return fmt.Errorf("graph: undefined bus %q", sig.Bus)
		}
		*sig = FromNode(id)
		return nil
	}
	for i := range g.nodes {
		for _, sig := range g.nodes[i].signalFields() {
			if err := resolve(sig); err != nil {
				return err
			}
		}
	}
	if err := g.detectCycles(); err != nil {
		return err
	}
	g.cache = make([]float32, len(g.nodes))
	g.cacheTick = make([]uint64, len(g.nodes))
	g.visiting = make([]bool, len(g.nodes))
	for i := range g.cacheTick {
		g.cacheTick[i] = ^uint64(0) // never matches tick 0 as "already computed"
	}
	return nil
}

// detectCycles walks every node's node-reference edges looking for a
// path back to its origin. Buses have already been resolved to NodeRefs
// by the time this runs, so this single pass covers both direct and
// bus-mediated feedback (spec.md §4.2.3 "cyclic bus references are a
// build error, not a runtime hang").
func (g *Graph) detectCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]uint8, len(g.nodes))
	var visit func(id NodeId) error
	visit = func(id NodeId) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("graph: cycle detected at node %d", id)
		}
		color[id] = gray
		for _, sig := range g.nodes[id].signalFields() {
			if sig.Kind == SignalNodeRef {
				if err := visit(sig.Node); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}
	for i := range g.nodes {
		if err := visit(NodeId(i)); err != nil {
			return err
		}
	}
	return nil
}

// CyclePosition returns the current position in cycles (fractional),
// used by Sample/Pattern nodes to query the pattern layer and by
// resolveSignal for SignalPattern inputs.
func (g *Graph) CyclePosition() float64 {
	switch g.mode {
	case TimingWallClock:
		elapsed := float64(g.sampleTick-g.wallTickRef) / g.SampleRate
		return g.wallCycleRef + elapsed*g.cps
	default:
		return float64(g.sampleTick) / g.SampleRate * g.cps
	}
}

// SetCPS changes tempo without discontinuity: in wall-clock mode the
// current cycle position is captured as the new reference before the
// rate changes (spec.md §4.2.4 "tempo changes never retroactively move
// already-rendered time").
func (g *Graph) SetCPS(cps float64) {
	if g.mode == TimingWallClock {
		g.wallCycleRef = g.CyclePosition()
		g.wallTickRef = g.sampleTick
	}
	g.cps = cps
}

// ResetCycles rewinds the transport to cycle 0.
func (g *Graph) ResetCycles() {
	g.sampleTick = 0
	g.wallTickRef = 0
	g.wallCycleRef = 0
}

// SetCycle jumps the transport to an arbitrary cycle position.
func (g *Graph) SetCycle(cyclePos float64) {
	g.wallCycleRef = cyclePos
	g.wallTickRef = g.sampleTick
	if g.mode == TimingSampleClock {
		g.sampleTick = uint64(cyclePos / g.cps * g.SampleRate)
	}
}

// Nudge offsets the transport by a small number of cycles without
// resetting node state, for live re-alignment against an external clock
// (spec.md §4.2.4 "Nudge").
func (g *Graph) Nudge(deltaCycles float64) {
	pos := g.CyclePosition() + deltaCycles
	if g.mode == TimingSampleClock {
		if pos < 0 {
			pos = 0
		}
		g.sampleTick = uint64(pos/g.cps*g.SampleRate + 0.5)
		return
	}
	g.wallCycleRef = pos
	g.wallTickRef = g.sampleTick
}

// ProcessSample advances the graph by one sample and returns the output
// node's value. The per-node cache is keyed by an internal tick counter
// so a node referenced from multiple places is evaluated at most once
// per sample (spec.md §4.2.1 "Evaluation").
func (g *Graph) ProcessSample() float32 {
	g.curTick++
	out := g.evalNode(g.out, g.curTick)
	g.sampleTick++
	return out
}

// ActiveVoiceCount sums the active (non-retiring) voice count across
// every Sample node in the graph, the metric spec.md §4.4's cut-group
// invariant and §8.3's E4 scenario are stated against.
func (g *Graph) ActiveVoiceCount() int {
	total := 0
	for i := range g.nodes {
		if g.nodes[i].Kind == KindSample && g.nodes[i].voiceManager != nil {
			total += g.nodes[i].voiceManager.ActiveVoiceCount()
		}
	}
	return total
}

// evalNode computes (or returns the memoized) output of node id for the
// given tick. Feedback loops are broken at DefineBus boundaries by
// Finalize's cycle check, so this recursion always terminates on a
// correctly finalized graph.
func (g *Graph) evalNode(id NodeId, tick uint64) float32 {
	if g.cacheTick[id] == tick {
		return g.cache[id]
	}
	v := g.processNode(id)
	g.cache[id] = v
	g.cacheTick[id] = tick
	return v
}
