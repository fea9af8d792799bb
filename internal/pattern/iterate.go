package pattern

// Match is one successful match, with its byte span and captures.
// Explicit is false when Captures holds only the synthetic whole-match
// capture Find produces for a pattern with no `(...)` groups.
type Match struct {
	Start, End int
	Captures   []Capture
	Explicit   bool
}

// ForEachMatch drives the repeated-match loop string.gmatch/string.gsub
// share: find successive non-overlapping matches of p in s, advancing
// past zero-length matches by one byte so a pattern like "" or "a*"
// still terminates (matching lstrlib.c's str_find_aux/gmatch_aux
// behavior). If p is anchored (^...), only the match at the initial
// position (if any) is reported. Stops when fn returns false.
func ForEachMatch(s, p string, fn func(Match) bool) error {
	anchored := len(p) > 0 && p[0] == '^'
	pos := 0
	for pos <= len(s) {
		start, end, caps, explicit, ok, err := FindExplicit(s, p, pos)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !fn(Match{Start: start, End: end, Captures: caps, Explicit: explicit}) {
			return nil
		}
		if end > pos {
			pos = end
		} else {
			pos++
		}
		if anchored {
			return nil
		}
	}
	return nil
}
