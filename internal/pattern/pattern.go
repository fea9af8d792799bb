// Package pattern implements the Lua pattern-matching engine (spec.md
// 4.3.1): classes, anchors, the * + - ? quantifiers, captures including
// position captures, %bxy balanced matches, %f[set] frontier patterns,
// and %0..%9 back-references — deliberately NOT a regular-expression
// engine (spec.md 1 calls this distinction out explicitly), implemented
// as a direct backtracking matcher the way reference Lua's lstrlib.c
// does.
//
// The teacher has no pattern engine (its language uses no Lua-style
// patterns); this package is built directly from spec.md 4.3.1, with the
// %b/%f edge cases cross-checked against the real Lua-in-Go auxlib code
// at _examples/other_examples/278e14d7_256lights-zb__internal-lua-auxlib.go.go.
package pattern

import (
	"fmt"
)

const maxCaptures = 32

// capPosition marks a capture opened with `()`, recorded as the
// 1-based byte position instead of a start/end span (spec.md 4.3.1).
const capPosition = -2
const capUnclosed = -1

type capture struct {
	start int
	len   int // capUnclosed while open, capPosition for position captures
}

// matchState holds the state of one matching attempt, mirroring the
// `MatchState` struct in lstrlib.c (src, src_end, p_end, captures).
type matchState struct {
	src      string
	pat      string
	level    int
	captures [maxCaptures]capture
	matchDepth int
}

var ErrMalformed = fmt.Errorf("malformed pattern")
var ErrTooComplex = fmt.Errorf("pattern too complex")

const maxMatchDepth = 200

// Find runs pattern p against s starting the search at byte offset init
// (0-based), returning the first match's [start,end) byte span and its
// captures (each either a string span, rendered by Captures, or a
// position, see CaptureKind). ok=false means no match anywhere at or
// after init.
func Find(s, p string, init int) (start, end int, caps []Capture, ok bool, err error) {
	start, end, caps, _, ok, err = FindExplicit(s, p, init)
	return start, end, caps, ok, err
}

// FindExplicit is Find plus a report of whether p contains any explicit
// `(...)` capture groups. Callers that must distinguish "no captures, so
// the whole match is the implicit result" (string.find/gmatch/gsub) from
// "one capture that happens to span the whole match" need this bit;
// captureResults synthesizes a single whole-match Capture in the former
// case, which otherwise looks identical to the latter.
func FindExplicit(s, p string, init int) (start, end int, caps []Capture, explicit bool, ok bool, err error) {
	anchor := false
	pp := p
	if len(pp) > 0 && pp[0] == '^' {
		anchor = true
		pp = pp[1:]
	}
	if init < 0 {
		init = 0
	}
	if init > len(s) {
		return 0, 0, nil, false, false, nil
	}
	for start := init; start <= len(s); start++ {
		ms := &matchState{src: s, pat: pp}
		e, matched, merr := ms.doMatch(start, 0)
		if merr != nil {
			return 0, 0, nil, false, false, merr
		}
		if matched {
			return start, e, ms.captureResults(start, e), ms.level > 0, true, nil
		}
		if anchor {
			break
		}
	}
	return 0, 0, nil, false, false, nil
}

// CaptureKind distinguishes a normal string capture from a `()` position
// capture (spec.md 4.3.1).
type CaptureKind int

const (
	CapString CaptureKind = iota
	CapPosition
)

type Capture struct {
	Kind  CaptureKind
	Start int // byte offset
	End   int // byte offset, CapString only
	Pos   int // 1-based position, CapPosition only
}

func (ms *matchState) captureResults(wholeStart, wholeEnd int) []Capture {
	if ms.level == 0 {
		return []Capture{{Kind: CapString, Start: wholeStart, End: wholeEnd}}
	}
	out := make([]Capture, ms.level)
	for i := 0; i < ms.level; i++ {
		c := ms.captures[i]
		if c.len == capPosition {
			out[i] = Capture{Kind: CapPosition, Pos: c.start + 1}
		} else {
			out[i] = Capture{Kind: CapString, Start: c.start, End: c.start + c.len}
		}
	}
	return out
}

// doMatch attempts to match ms.pat[pp:] against ms.src[sp:], returning
// the end position of the match. This is the direct backtracking
// recursive matcher spec.md 4.3.1 prescribes ("for each quantifier a
// backtracking strategy is used").
func (ms *matchState) doMatch(sp, pp int) (int, bool, error) {
	ms.matchDepth++
	defer func() { ms.matchDepth-- }()
	if ms.matchDepth > maxMatchDepth {
		return 0, false, ErrTooComplex
	}
	for {
		if pp >= len(ms.pat) {
			return sp, true, nil
		}
		switch ms.pat[pp] {
		case '(':
			if pp+1 < len(ms.pat) && ms.pat[pp+1] == ')' {
				return ms.startCapture(sp, pp+2, capPosition)
			}
			return ms.startCapture(sp, pp+1, capUnclosed)
		case ')':
			return ms.endCapture(sp, pp+1)
		case '$':
			if pp+1 == len(ms.pat) {
				if sp == len(ms.src) {
					return sp, true, nil
				}
				return 0, false, nil
			}
		case '%':
			if pp+1 < len(ms.pat) {
				switch ms.pat[pp+1] {
				case 'b':
					return ms.matchBalance(sp, pp+2)
				case 'f':
					np, err := ms.matchFrontier(sp, pp+2)
					if err != nil {
						return 0, false, err
					}
					if np < 0 {
						return 0, false, nil
					}
					pp = np
					continue
				default:
					if isDigit(ms.pat[pp+1]) {
						ns, err := ms.matchCapture(sp, int(ms.pat[pp+1]-'0'))
						if err != nil {
							return 0, false, err
						}
						if ns < 0 {
							return 0, false, nil
						}
						sp = ns
						pp += 2
						continue
					}
				}
			}
		}
		ep, err := ms.classEnd(pp)
		if err != nil {
			return 0, false, err
		}
		matches := sp < len(ms.src) && ms.singleMatch(ms.src[sp], pp, ep)
		if ep < len(ms.pat) {
			switch ms.pat[ep] {
			case '?':
				if matches {
					if r, ok, err := ms.doMatch(sp+1, ep+1); err != nil {
						return 0, false, err
					} else if ok {
						return r, ok, nil
					}
				}
				pp = ep + 1
				continue
			case '+':
				if matches {
					return ms.maxExpand(sp+1, pp, ep)
				}
				return 0, false, nil
			case '*':
				return ms.maxExpand(sp, pp, ep)
			case '-':
				return ms.minExpand(sp, pp, ep)
			}
		}
		if !matches {
			return 0, false, nil
		}
		sp++
		pp = ep
	}
}

func (ms *matchState) startCapture(sp, pp, what int) (int, bool, error) {
	if ms.level >= maxCaptures {
		return 0, false, ErrTooComplex
	}
	ms.captures[ms.level] = capture{start: sp, len: what}
	ms.level++
	r, ok, err := ms.doMatch(sp, pp)
	if !ok || err != nil {
		ms.level--
	}
	return r, ok, err
}

func (ms *matchState) endCapture(sp, pp int) (int, bool, error) {
	l := -1
	for i := ms.level - 1; i >= 0; i-- {
		if ms.captures[i].len == capUnclosed {
			l = i
			break
		}
	}
	if l < 0 {
		return 0, false, ErrMalformed
	}
	ms.captures[l].len = sp - ms.captures[l].start
	r, ok, err := ms.doMatch(sp, pp)
	if !ok || err != nil {
		ms.captures[l].len = capUnclosed
	}
	return r, ok, err
}

func (ms *matchState) matchCapture(sp, idx int) (int, error) {
	idx--
	if idx < 0 || idx >= ms.level || ms.captures[idx].len == capUnclosed {
		return 0, ErrMalformed
	}
	c := ms.captures[idx]
	captured := ms.src[c.start : c.start+c.len]
	if len(ms.src)-sp >= len(captured) && ms.src[sp:sp+len(captured)] == captured {
		return sp + len(captured), nil
	}
	return -1, nil
}

// matchBalance implements %bxy: match a balanced run starting at x,
// ending at the matching y (spec.md 4.3.1).
func (ms *matchState) matchBalance(sp, pp int) (int, bool, error) {
	if pp+1 >= len(ms.pat) {
		return 0, false, ErrMalformed
	}
	if sp >= len(ms.src) || ms.src[sp] != ms.pat[pp] {
		return 0, false, nil
	}
	b, e := ms.pat[pp], ms.pat[pp+1]
	cont := 1
	i := sp + 1
	for i < len(ms.src) {
		if ms.src[i] == e {
			cont--
			if cont == 0 {
				return ms.doMatch(i+1, pp+2)
			}
		} else if ms.src[i] == b {
			cont++
		}
		i++
	}
	return 0, false, nil
}

// matchFrontier implements %f[set]: the previous byte is not in set and
// the next byte is (spec.md 4.3.1).
func (ms *matchState) matchFrontier(sp, pp int) (int, error) {
	if pp >= len(ms.pat) || ms.pat[pp] != '[' {
		return 0, ErrMalformed
	}
	ep, err := ms.classEnd(pp)
	if err != nil {
		return 0, err
	}
	var prev byte
	if sp > 0 {
		prev = ms.src[sp-1]
	}
	var cur byte
	if sp < len(ms.src) {
		cur = ms.src[sp]
	}
	if !matchClass2(prev, ms.pat, pp, ep) && matchClass2(cur, ms.pat, pp, ep) {
		return ep, nil
	}
	return -1, nil
}

func (ms *matchState) maxExpand(sp, pp, ep int) (int, bool, error) {
	count := 0
	for sp+count < len(ms.src) && ms.singleMatch(ms.src[sp+count], pp, ep) {
		count++
	}
	for count >= 0 {
		if r, ok, err := ms.doMatch(sp+count, ep+1); err != nil {
			return 0, false, err
		} else if ok {
			return r, ok, nil
		}
		count--
	}
	return 0, false, nil
}

func (ms *matchState) minExpand(sp, pp, ep int) (int, bool, error) {
	for {
		if r, ok, err := ms.doMatch(sp, ep+1); err != nil {
			return 0, false, err
		} else if ok {
			return r, ok, nil
		}
		if sp < len(ms.src) && ms.singleMatch(ms.src[sp], pp, ep) {
			sp++
		} else {
			return 0, false, nil
		}
	}
}

// classEnd returns the index just past the single-atom pattern item
// starting at pp (a literal byte, a %-class, or a [...] set).
func (ms *matchState) classEnd(pp int) (int, error) {
	if pp >= len(ms.pat) {
		return 0, ErrMalformed
	}
	c := ms.pat[pp]
	pp++
	if c == '%' {
		if pp >= len(ms.pat) {
			return 0, ErrMalformed
		}
		return pp + 1, nil
	}
	if c == '[' {
		if pp < len(ms.pat) && ms.pat[pp] == '^' {
			pp++
		}
		for {
			if pp >= len(ms.pat) {
				return 0, ErrMalformed
			}
			cc := ms.pat[pp]
			pp++
			if cc == '%' {
				if pp >= len(ms.pat) {
					return 0, ErrMalformed
				}
				pp++
			} else if cc == ']' {
				return pp, nil
			}
		}
	}
	return pp, nil
}

func (ms *matchState) singleMatch(c byte, pp, ep int) bool {
	pc := ms.pat[pp]
	switch pc {
	case '.':
		return true
	case '%':
		return matchClassChar(c, ms.pat[pp+1])
	case '[':
		return matchClass2(c, ms.pat, pp, ep)
	default:
		return pc == c
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func matchClassChar(c, cl byte) bool {
	var res bool
	switch lower(cl) {
	case 'a':
		res = isAlpha(c)
	case 'd':
		res = c >= '0' && c <= '9'
	case 'l':
		res = c >= 'a' && c <= 'z'
	case 'u':
		res = c >= 'A' && c <= 'Z'
	case 's':
		res = isSpace(c)
	case 'w':
		res = isAlpha(c) || (c >= '0' && c <= '9')
	case 'c':
		res = c < 32 || c == 127
	case 'p':
		res = isPunct(c)
	case 'x':
		res = isHex(c)
	case 'g':
		res = c > 32 && c < 127
	default:
		return cl == c
	}
	if isUpper(cl) {
		return !res
	}
	return res
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
func isPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') || (c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}
func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// matchClass2 matches c against the [...] set starting at pat[pp] and
// ending just before pat[ep-1]==']'.
func matchClass2(c byte, pat string, pp, ep int) bool {
	pp++ // skip '['
	negate := false
	if pp < len(pat) && pat[pp] == '^' {
		negate = true
		pp++
	}
	found := false
	for pp < ep-1 {
		if pat[pp] == '%' {
			pp++
			if matchClassChar(c, pat[pp]) {
				found = true
			}
			pp++
		} else if pp+2 < ep-1 && pat[pp+1] == '-' {
			if pat[pp] <= c && c <= pat[pp+2] {
				found = true
			}
			pp += 3
		} else {
			if pat[pp] == c {
				found = true
			}
			pp++
		}
	}
	return found != negate
}
