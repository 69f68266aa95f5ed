package scanner

import "sort"

// Match is a single detection. The matched bytes themselves are
// deliberately not part of this type: downstream code must never be able
// to exfiltrate a secret via the scanner's API.
type Match struct {
	PatternName string
	Line        int
	Column      int
}

// Scanner detects occurrences of Catalog across a stream delivered via
// repeated Scan calls of arbitrary size, followed by one Finalize call.
// A Scanner is not safe for concurrent use; callers that drain stdout and
// stderr concurrently must use one Scanner per stream.
type Scanner struct {
	tail        []byte
	tailOffset  int64 // global byte offset of tail[0] in the whole stream
	tailLine    int   // 1-based line number of tail[0]
	tailCol     int   // 1-based column of tail[0] within its line
	reportedUpTo int64 // matches starting before this offset are not re-reported
}

// New creates a Scanner positioned at the start of a fresh stream.
func New() *Scanner {
	return &Scanner{tailLine: 1, tailCol: 1}
}

// Scan searches tail‖chunk for every catalog pattern, reports matches that
// have not already been reported by a prior call, and carries the last
// tailWindow bytes of tail‖chunk forward as the new tail.
func (s *Scanner) Scan(chunk []byte) []Match {
	combined := append(append([]byte(nil), s.tail...), chunk...)
	matches := s.findNewMatches(combined)
	s.retire(combined, len(combined)-tailWindow)
	return matches
}

// Finalize searches whatever tail remains for patterns that lie entirely
// within it, and must be called exactly once after the last Scan call.
func (s *Scanner) Finalize() []Match {
	combined := s.tail
	matches := s.findNewMatches(combined)
	s.tail = nil
	return matches
}

// findNewMatches locates every catalog match in combined, skips any whose
// global start offset has already been reported, and returns the rest
// ordered by position with line/column computed relative to the whole
// stream seen so far.
func (s *Scanner) findNewMatches(combined []byte) []Match {
	type rawMatch struct {
		name       string
		start, end int
	}
	var raw []rawMatch
	for _, p := range Catalog {
		for _, loc := range p.Re.FindAllIndex(combined, -1) {
			raw = append(raw, rawMatch{name: p.Name, start: loc[0], end: loc[1]})
		}
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].start < raw[j].start })

	var out []Match
	line, col := s.tailLine, s.tailCol
	pos := 0
	for _, m := range raw {
		globalStart := s.tailOffset + int64(m.start)
		line, col = advance(line, col, combined[pos:m.start])
		pos = m.start
		if globalStart < s.reportedUpTo {
			continue
		}
		out = append(out, Match{PatternName: m.name, Line: line, Column: col})
		s.reportedUpTo = globalStart + 1
	}
	return out
}

// retire drops combined down to its last tailWindow bytes (or keeps it
// whole if shorter), folding the discarded prefix's newlines into the
// running line/column position.
func (s *Scanner) retire(combined []byte, keepFrom int) {
	if keepFrom < 0 {
		keepFrom = 0
	}
	if keepFrom > len(combined) {
		keepFrom = len(combined)
	}
	s.tailLine, s.tailCol = advance(s.tailLine, s.tailCol, combined[:keepFrom])
	s.tailOffset += int64(keepFrom)
	s.tail = append([]byte(nil), combined[keepFrom:]...)
}

// advance walks data from (line, col) and returns the resulting position.
func advance(line, col int, data []byte) (int, int) {
	for _, b := range data {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// ScanString runs a Scanner over s in one shot and returns every match.
func ScanString(s string) []Match {
	sc := New()
	matches := sc.Scan([]byte(s))
	matches = append(matches, sc.Finalize()...)
	return matches
}

// ContainsSecrets is a fast predicate equivalent to len(ScanString(s)) > 0,
// short-circuiting on the first hit instead of collecting positions.
func ContainsSecrets(s string) bool {
	b := []byte(s)
	for _, p := range Catalog {
		if p.Re.Match(b) {
			return true
		}
	}
	return false
}
