// Package edit performs surgical removal of unverifiable citations: only the
// minimal text span needed to eliminate the reference is cut, and the
// boundary heuristic guarantees the remaining prose is never left with a
// dangling clause.
package edit

import (
	"sort"
	"strings"

	"github.com/jgowrie/advocate/internal/citation"
	"github.com/jgowrie/advocate/internal/schema"
)

// Removal records one excision for the final report.
type Removal struct {
	Citation schema.Citation
	// Core is true when the citation was the sentence's main authority and
	// its dependent clause (or the whole sentence) had to go with it.
	Core    bool
	Removed string // the exact text that was cut
}

// supportingIntroducers are phrases that mark a citation as a parenthetical
// afterthought, removable in isolation.
var supportingIntroducers = []string{
	"see also", "see, eg,", "see eg", "see", "cf", "citing", "applied in", "followed in",
}

// corePrepositions precede a citation embedded in a clause ("The court in
// Smith v Jones ... held"); removing preposition plus reference leaves the
// clause grammatical.
var corePrepositions = []string{"in", "of", "by", "per", "under", "following", "applying"}

// Remove cuts every citation in cites out of text and returns the edited
// text with the removals performed, most recent offset first so earlier
// spans stay valid. The caller decides which citations deserve removal; this
// package only answers how to cut them cleanly.
func Remove(text string, cites []schema.Citation) (string, []Removal) {
	type target struct {
		cite schema.Citation
		span schema.Span // full reference span including case name
	}

	orig := text
	var targets []target
	for _, c := range cites {
		targets = append(targets, target{cite: c, span: referenceSpan(text, c)})
	}
	// Right-to-left so earlier offsets survive each cut.
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].span.Offset > targets[j].span.Offset
	})

	var removals []Removal
	minCut := len(text)
	for _, t := range targets {
		if t.span.End() > minCut {
			// A previous cut already swallowed this reference (two offenders
			// in one sentence). Record it without cutting again.
			removals = append(removals, Removal{
				Citation: t.cite,
				Core:     true,
				Removed:  strings.TrimSpace(orig[t.span.Offset:t.span.End()]),
			})
			continue
		}
		var r Removal
		var lo int
		text, r, lo = removeOne(text, t.cite, t.span)
		if lo < minCut {
			minCut = lo
		}
		removals = append(removals, r)
	}
	// Cuts ran right-to-left; report removals in document order.
	for i, j := 0, len(removals)-1; i < j; i, j = i+1, j-1 {
		removals[i], removals[j] = removals[j], removals[i]
	}
	return text, removals
}

// referenceSpan widens a citation's spans to one contiguous range covering
// the case name, the citation, and any parallel form.
func referenceSpan(text string, c schema.Citation) schema.Span {
	lo, hi := c.Spans[0].Offset, c.Spans[0].End()
	for _, s := range c.Spans[1:] {
		if s.Offset < lo {
			lo = s.Offset
		}
		if s.End() > hi {
			hi = s.End()
		}
	}
	if name, ok := citation.PrecedingCaseNameSpan(text, lo); ok {
		lo = name.Offset
	}
	return schema.Span{Offset: lo, Length: hi - lo}
}

// removeOne excises one reference, choosing between parenthetical removal,
// clause elision, and whole-sentence removal. The last return value is the
// offset where the cut began.
func removeOne(text string, c schema.Citation, ref schema.Span) (string, Removal, int) {
	if lo, hi, ok := enclosingParenthetical(text, ref); ok {
		s, r := cut(text, c, lo, hi, false)
		return s, r, lo
	}
	if lo, ok := introducerStart(text, ref.Offset); ok {
		// Cut a "; see also Smith v Jones [2025] HCA 99" segment from the
		// separator through the end of the reference.
		s, r := cut(text, c, lo, ref.End(), false)
		return s, r, lo
	}

	// Embedded behind a preposition: elide "in Smith v Jones [2025] HCA 99"
	// and the clause stays grammatical ("The court held that ...").
	if lo, ok := prepositionStart(text, ref.Offset); ok {
		s, r := cut(text, c, lo, ref.End(), true)
		return s, r, lo
	}

	// Subject position ("Smith v Jones [2025] HCA 99 held that ...") or no
	// safe elision point: drop the whole sentence rather than mangle it.
	sentLo, sentHi := sentenceBounds(text, ref.Offset)
	s, r := cut(text, c, sentLo, sentHi, true)
	return s, r, sentLo
}

// cut removes text[lo:hi], tidies the seam, and records the removal.
func cut(text string, c schema.Citation, lo, hi int, core bool) (string, Removal) {
	removed := text[lo:hi]
	out := text[:lo] + text[hi:]
	out = tidy(out, lo)
	return out, Removal{Citation: c, Core: core, Removed: strings.TrimSpace(removed)}
}

// tidy repairs the join point after a cut: doubled spaces, space before
// punctuation, and orphaned separators.
func tidy(s string, at int) string {
	// Work on a window around the seam; global rewrites would disturb
	// unrelated text.
	lo := at - 2
	if lo < 0 {
		lo = 0
	}
	hi := at + 2
	if hi > len(s) {
		hi = len(s)
	}
	window := s[lo:hi]
	window = strings.ReplaceAll(window, "  ", " ")
	window = strings.ReplaceAll(window, " .", ".")
	window = strings.ReplaceAll(window, " ,", ",")
	window = strings.ReplaceAll(window, " ;", ";")
	window = strings.ReplaceAll(window, ",.", ".")
	window = strings.ReplaceAll(window, ";.", ".")
	return s[:lo] + window + s[hi:]
}

// enclosingParenthetical reports the bounds of a parenthetical that contains
// only the reference (plus an optional introducer like "see").
func enclosingParenthetical(text string, ref schema.Span) (int, int, bool) {
	open := strings.LastIndexByte(text[:ref.Offset], '(')
	if open < 0 {
		return 0, 0, false
	}
	closeRel := strings.IndexByte(text[ref.End():], ')')
	if closeRel < 0 {
		return 0, 0, false
	}
	closeAbs := ref.End() + closeRel
	// Everything inside the parens besides the reference must be an
	// introducer, punctuation, or whitespace.
	inner := text[open+1:ref.Offset] + text[ref.End():closeAbs]
	inner = strings.ToLower(strings.Trim(inner, " ,;:"))
	for _, intro := range supportingIntroducers {
		inner = strings.TrimSpace(strings.TrimPrefix(inner, intro))
	}
	if inner != "" {
		return 0, 0, false
	}
	// Include a space before the open paren so "text (cite)." → "text.".
	if open > 0 && text[open-1] == ' ' {
		open--
	}
	return open, closeAbs + 1, true
}

// introducerStart finds the start of a "; see also"-style introducer segment
// immediately before the reference. Returns the cut start, beginning at the
// separator punctuation.
func introducerStart(text string, refStart int) (int, bool) {
	prefix := strings.ToLower(text[:refStart])
	for _, intro := range supportingIntroducers {
		marker := intro + " "
		idx := strings.LastIndex(prefix, marker)
		if idx < 0 || strings.TrimSpace(prefix[idx+len(marker):]) != "" {
			continue
		}
		// "foresee" must not match "see": the introducer has to start a word.
		if idx > 0 && prefix[idx-1] >= 'a' && prefix[idx-1] <= 'z' {
			continue
		}
		// Walk back over separator punctuation ("; " or ", "). Without a
		// separator the introducer opens the clause and the cut starts there.
		cutAt := idx
		for cutAt > 0 && (prefix[cutAt-1] == ' ' || prefix[cutAt-1] == ';' || prefix[cutAt-1] == ',') {
			cutAt--
		}
		return cutAt, true
	}
	return 0, false
}

// prepositionStart finds a connective preposition directly before the
// reference and returns the offset where the elision should begin.
func prepositionStart(text string, refStart int) (int, bool) {
	prefix := strings.TrimRight(text[:refStart], " ")
	for _, prep := range corePrepositions {
		if !strings.HasSuffix(strings.ToLower(prefix), " "+prep) {
			continue
		}
		return len(prefix) - len(prep), true
	}
	return 0, false
}

// sentenceBounds returns the [lo, hi) bounds of the sentence containing
// offset, including the trailing terminator and one following separator.
// Sentences may be separated by a space or a line break; model output is
// frequently newline-separated.
func sentenceBounds(text string, offset int) (int, int) {
	lo := 0
	for i := offset - 1; i > 0; i-- {
		if isTerminator(text[i]) && i+1 < len(text) && isSeparator(text[i+1]) {
			lo = i + 2
			break
		}
	}
	hi := len(text)
	for i := offset; i < len(text); i++ {
		if isTerminator(text[i]) {
			hi = i + 1
			if hi < len(text) && isSeparator(text[hi]) {
				hi++
			}
			break
		}
	}
	return lo, hi
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSeparator(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}
