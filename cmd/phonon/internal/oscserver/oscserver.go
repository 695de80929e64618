// Package oscserver implements the optional OSC trigger surface
// (spec.md §6.3): /eval compiles a program and swaps it into the live
// engine; /play, /sample and /synth are logged with their arguments and
// trigger no sound.
package oscserver

import (
	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/phonon-lang/phonon/cmd/phonon/internal/compile"
	"github.com/phonon-lang/phonon/render"
)

// Handler holds what the OSC routes need to compile a new program and
// swap it into a running engine: the engine itself, the compile options
// and a logger.
type Handler struct {
	Engine     *render.Engine
	CompileOpt compile.Options
	Logger     *log.Logger
}

// Serve blocks listening for OSC messages on addr (e.g. ":57120"),
// dispatching /eval, /play, /sample and /synth per spec.md §6.3.
func (h *Handler) Serve(addr string) error {
	d := osc.NewStandardDispatcher()

	d.AddMsgHandler("/eval", func(msg *osc.Message) {
		if len(msg.Arguments) == 0 {
			h.logf("osc /eval: missing code-string argument")
			return
		}
		src, ok := msg.Arguments[0].(string)
		if !ok {
			h.logf("osc /eval: argument must be a string")
			return
		}
		g, err := compile.Source(src, h.CompileOpt)
		if err != nil {
			h.logf("osc /eval: %v", err)
			return
		}
		h.Engine.Swap(g)
	})

	d.AddMsgHandler("/play", func(msg *osc.Message) {
		h.logf("osc /play received")
	})

	d.AddMsgHandler("/sample", func(msg *osc.Message) {
		name, speed, gain := sampleArgs(msg)
		h.logf("osc /sample %s speed=%v gain=%v", name, speed, gain)
	})

	d.AddMsgHandler("/synth", func(msg *osc.Message) {
		name, dur, gain := synthArgs(msg)
		h.logf("osc /synth %s duration=%v gain=%v", name, dur, gain)
	})

	server := &osc.Server{Addr: addr, Dispatcher: d}
	h.logf("osc server listening on %s", addr)
	return server.ListenAndServe()
}

func (h *Handler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Infof(format, args...)
	}
}

func sampleArgs(msg *osc.Message) (name string, speed, gain float64) {
	speed, gain = 1, 1
	if len(msg.Arguments) > 0 {
		name, _ = msg.Arguments[0].(string)
	}
	if len(msg.Arguments) > 1 {
		speed = toFloat(msg.Arguments[1])
	}
	if len(msg.Arguments) > 2 {
		gain = toFloat(msg.Arguments[2])
	}
	return
}

func synthArgs(msg *osc.Message) (name string, duration, gain float64) {
	duration, gain = 1, 1
	if len(msg.Arguments) > 0 {
		name, _ = msg.Arguments[0].(string)
	}
	if len(msg.Arguments) > 1 {
		duration = toFloat(msg.Arguments[1])
	}
	if len(msg.Arguments) > 2 {
		gain = toFloat(msg.Arguments[2])
	}
	return
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
