// Package mini implements the mini-notation sub-language (spec.md §4.1.4):
// the textual syntax written between double quotes in the DSL, compiled to
// a patt.Pattern[string]. It is tolerant of whitespace and supports
// arbitrary nesting.
package mini

import (
	"fmt"

	"github.com/phonon-lang/phonon/frac"
	"github.com/phonon-lang/phonon/patt"
)

// Parse compiles a mini-notation source string into a Pattern[string].
func Parse(src string) (patt.Pattern[string], error) {
	p := &parser{src: []rune(src), pos: 0}
	p.skipSpace()
	seq, err := p.parseSequence(0)
	if err != nil {
		return patt.Pattern[string]{}, err
	}
	p.skipSpace()
	if !p.atEnd() {
		return patt.Pattern[string]{}, fmt.Errorf("mini: unexpected trailing input at %d: %q", p.pos, string(p.src[p.pos:]))
	}
	return seq, nil
}

// MustParse panics on a parse error; convenient for literal patterns
// embedded directly in Go code (tests, default DSL snippets).
func MustParse(src string) patt.Pattern[string] {
	p, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return p
}

// step is one slot of a sequence before it has been laid out in time: a
// pattern plus how many "units" wide it is (1 normally, >1 for `@n`
// elongation).
type step struct {
	pat    patt.Pattern[string]
	weight frac.Fraction
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.atEnd() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

// parseSequence parses a sequence of space-separated steps up to a
// terminator (']', '>', ',', or end of input), splitting alternatives at
// top-level '|' into a Choice, and lays each alternative out as an
// even subdivision of one cycle weighted by any `@n` elongations, exactly
// like top-level space-separated tokens (spec.md §4.1.4).
func (p *parser) parseSequence(depth int) (patt.Pattern[string], error) {
	var groups [][]step // alternatives separated by top-level '|'
	var cur []step

	for {
		p.skipSpace()
		if p.atEnd() || isTerminator(p.peek()) {
			break
		}
		if p.peek() == '|' {
			p.pos++
			groups = append(groups, cur)
			cur = nil
			continue
		}
		st, err := p.parseStep()
		if err != nil {
			return patt.Pattern[string]{}, err
		}
		cur = append(cur, st)
	}
	groups = append(groups, cur)

	var alts []patt.Pattern[string]
	for _, g := range groups {
		alts = append(alts, layoutSteps(g))
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return patt.Choice(alts...), nil
}

func isTerminator(r rune) bool {
	return r == ']' || r == '>' || r == ',' || 0 == r
}

// layoutSteps lays out a run of weighted steps as consecutive sub-spans of
// one cycle proportional to their weights (spec.md §4.1.4 "space-separated
// tokens -> cat-like even subdivision").
func layoutSteps(steps []step) patt.Pattern[string] {
	if len(steps) == 0 {
		return patt.Silence[string]()
	}
	total := frac.FromInt(0)
	for _, st := range steps {
		total = frac.Add(total, st.weight)
	}
	if total.Num == 0 {
		return patt.Silence[string]()
	}
	var parts []patt.Pattern[string]
	pos := frac.FromInt(0)
	for _, st := range steps {
		b := frac.Div(pos, total)
		pos = frac.Add(pos, st.weight)
		e := frac.Div(pos, total)
		parts = append(parts, patt.Compress(b, e, st.pat))
	}
	return patt.Stack(parts...)
}

// parseStep parses one token (an atom, bracketed group, or angle-bracketed
// alternation) followed by any modifiers (`*n`, `/n`, `(p,k,r)`, `?`,
// `@n`).
func (p *parser) parseStep() (step, error) {
	var pat patt.Pattern[string]
	var err error

	switch p.peek() {
	case '~':
		p.pos++
		pat = patt.Silence[string]()
	case '[':
		p.pos++
		pat, err = p.parseStackOrSeq(']')
		if err != nil {
			return step{}, err
		}
		if p.peek() != ']' {
			return step{}, fmt.Errorf("mini: expected ']' at %d", p.pos)
		}
		p.pos++
	case '<':
		p.pos++
		pat, err = p.parseCat('>')
		if err != nil {
			return step{}, err
		}
		if p.peek() != '>' {
			return step{}, fmt.Errorf("mini: expected '>' at %d", p.pos)
		}
		p.pos++
	default:
		tok, e := p.parseAtom()
		if e != nil {
			return step{}, e
		}
		pat = patt.Pure(tok)
	}

	weight := frac.FromInt(1)
	for {
		switch p.peek() {
		case '*':
			p.pos++
			n, e := p.parseNumber()
			if e != nil {
				return step{}, e
			}
			pat = patt.Fast(frac.FromFloat(n), pat)
		case '/':
			p.pos++
			n, e := p.parseNumber()
			if e != nil {
				return step{}, e
			}
			pat = patt.Slow(frac.FromFloat(n), pat)
		case '?':
			p.pos++
			amount := 0.5
			if isDigitOrDot(p.peek()) {
				n, e := p.parseNumber()
				if e != nil {
					return step{}, e
				}
				amount = n
			}
			pat = patt.DegradeBy(amount, pat)
		case '@':
			p.pos++
			n, e := p.parseNumber()
			if e != nil {
				return step{}, e
			}
			weight = frac.FromFloat(n)
		case '(':
			p.pos++
			args, e := p.parseEuclidArgs()
			if e != nil {
				return step{}, e
			}
			pat = patt.EuclidOf(args[0], args[1], args[2], pat)
		default:
			return step{pat: pat, weight: weight}, nil
		}
	}
}

// parseStackOrSeq parses the content between '[' and ']', which may be a
// comma-separated stack (`[a,b]`) or a plain sequence.
func (p *parser) parseStackOrSeq(closeCh rune) (patt.Pattern[string], error) {
	first, err := p.parseSequence(1)
	if err != nil {
		return patt.Pattern[string]{}, err
	}
	p.skipSpace()
	if p.peek() != ',' {
		return first, nil
	}
	parts := []patt.Pattern[string]{first}
	for p.peek() == ',' {
		p.pos++
		next, err := p.parseSequence(1)
		if err != nil {
			return patt.Pattern[string]{}, err
		}
		parts = append(parts, next)
		p.skipSpace()
	}
	return patt.Stack(parts...), nil
}

// parseCat parses the content between '<' and '>': one step per cycle.
func (p *parser) parseCat(closeCh rune) (patt.Pattern[string], error) {
	var steps []patt.Pattern[string]
	for {
		p.skipSpace()
		if p.atEnd() || p.peek() == closeCh {
			break
		}
		st, err := p.parseStep()
		if err != nil {
			return patt.Pattern[string]{}, err
		}
		// <a b c> ignores @-weighting: each slot is exactly one cycle.
		steps = append(steps, st.pat)
	}
	return patt.Cat(steps...), nil
}

func (p *parser) parseEuclidArgs() ([3]int, error) {
	var out [3]int
	for i := 0; i < 3; i++ {
		p.skipSpace()
		n, err := p.parseInt()
		if err != nil {
			if i == 2 {
				out[2] = 0
				break
			}
			return out, err
		}
		out[i] = n
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	p.skipSpace()
	if p.peek() != ')' {
		return out, fmt.Errorf("mini: expected ')' in euclid args at %d", p.pos)
	}
	p.pos++
	return out, nil
}

func isDigitOrDot(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.' || r == '-'
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.atEnd() && ((p.peek() >= '0' && p.peek() <= '9') || p.peek() == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("mini: expected number at %d", p.pos)
	}
	var f float64
	_, err := fmt.Sscanf(string(p.src[start:p.pos]), "%g", &f)
	return f, err
}

func (p *parser) parseInt() (int, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.atEnd() && p.peek() >= '0' && p.peek() <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("mini: expected integer at %d", p.pos)
	}
	var n int
	_, err := fmt.Sscanf(string(p.src[start:p.pos]), "%d", &n)
	return n, err
}

// parseAtom reads a bare token: any run of characters that isn't
// whitespace or one of the structural/modifier characters.
func (p *parser) parseAtom() (string, error) {
	start := p.pos
	for !p.atEnd() {
		r := p.peek()
		if r == ' ' || r == '\t' || r == '\n' || r == '[' || r == ']' || r == '<' || r == '>' ||
			r == '*' || r == '/' || r == '?' || r == '@' || r == '(' || r == ')' || r == ',' || r == '~' || r == '|' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return "", fmt.Errorf("mini: unexpected character %q at %d", string(p.peek()), p.pos)
	}
	return string(p.src[start:p.pos]), nil
}
