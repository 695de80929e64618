package lang

import "strconv"

// noteNames maps the letter+accidental prefix of a note-name token
// (`c`, `cs`/`c#`, `df`/`db`, ...) to its semitone offset within an
// octave, C-relative.
var noteNames = map[string]int{
	"c": 0, "cs": 1, "df": 1, "d": 2, "ds": 3, "ef": 3,
	"e": 4, "f": 5, "fs": 6, "gf": 6, "g": 7, "gs": 8, "af": 8,
	"a": 9, "as": 10, "bf": 10, "b": 11,
	"c#": 1, "db": 1, "d#": 3, "eb": 3, "f#": 6, "gb": 6,
	"g#": 8, "ab": 8, "a#": 10, "bb": 10,
}

// parseNumericToken converts one mini-notation token to a float: a
// plain number, or a note name like `c4`/`cs5`/`a` (spec.md §4.1.3
// "note names in pattern strings"). Middle C (`c5`) is semitone 0,
// matching common tracker/Tidal convention of octave 5 as the reference
// octave. Unparseable tokens (e.g. `~` rests already filtered upstream,
// or sample names in a non-numeric context) fall back to 0.
func parseNumericToken(tok string) float32 {
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return float32(f)
	}

	letters := tok
	octave := 5
	// Split trailing digits (possibly negative) as the octave.
	split := len(tok)
	for split > 0 && (isDigitByte(tok[split-1]) || (split == len(tok) && tok[split-1] == '-')) {
		split--
	}
	if split < len(tok) {
		letters = tok[:split]
		if n, err := strconv.Atoi(tok[split:]); err == nil {
			octave = n
		}
	}

	offset, ok := noteNames[letters]
	if !ok {
		return 0
	}
	return float32(offset + (octave-5)*12)
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }
