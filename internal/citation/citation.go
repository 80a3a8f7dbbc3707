// Package citation extracts legal citations from free text and normalizes
// them into comparable keys. Two Australian shapes are recognized (the
// medium-neutral "[2019] HCA 23" and the traditional "(1992) 175 CLR 1")
// plus the common UK, US and NZ report series.
package citation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jgowrie/advocate/internal/schema"
)

// australianCourts maps medium-neutral court abbreviations to the
// jurisdiction segment used when constructing lookup URLs.
var australianCourts = map[string]string{
	"HCA":     "cth",
	"FCA":     "cth",
	"FCAFC":   "cth",
	"FamCA":   "cth",
	"FamCAFC": "cth",
	"FCCA":    "cth",
	"AATA":    "cth",
	"NSWSC":   "nsw",
	"NSWCA":   "nsw",
	"NSWCCA":  "nsw",
	"NSWDC":   "nsw",
	"VSC":     "vic",
	"VSCA":    "vic",
	"VCC":     "vic",
	"QSC":     "qld",
	"QCA":     "qld",
	"QDC":     "qld",
	"WASC":    "wa",
	"WASCA":   "wa",
	"SASC":    "sa",
	"SASCFC":  "sa",
	"TASSC":   "tas",
	"ACTSC":   "act",
	"NTSC":    "nt",
}

// australianReporters maps traditional report series abbreviations to a
// jurisdiction guess. CLR/ALR/FCR/ALJR are Commonwealth-level series.
var australianReporters = map[string]string{
	"CLR":   "cth",
	"ALR":   "cth",
	"FCR":   "cth",
	"FLR":   "cth",
	"ALJR":  "cth",
	"NSWLR": "nsw",
	"VR":    "vic",
	"QD R":  "qld",
	"WAR":   "wa",
	"SASR":  "sa",
}

// internationalSeries lists bracket-form series recognized as legitimate
// foreign authority. These are accepted without a database check.
var internationalSeries = map[string]string{
	"AC":     "uk",
	"ALL ER": "uk",
	"WLR":    "uk",
	"QB":     "uk",
	"KB":     "uk",
	"CH":     "uk",
	"UKHL":   "uk",
	"UKSC":   "uk",
	"UKPC":   "uk",
	"EWCA":   "uk",
	"EWHC":   "uk",
	"NZLR":   "nz",
	"NZCA":   "nz",
	"NZSC":   "nz",
	"NZHC":   "nz",
}

// usReporters lists American reporter abbreviations matched by the US-form
// recognizer ("410 U.S. 113 (1973)").
var usReporters = map[string]bool{
	"U.S.":     true,
	"S. CT.":   true,
	"S.CT.":    true,
	"F.":       true,
	"F.2D":     true,
	"F.3D":     true,
	"F. SUPP.": true,
}

var (
	// mediumNeutralRe matches "[YEAR] COURT NUMBER". The court group accepts
	// mixed case ("FamCAFC") and multi-word UK series ("All ER").
	mediumNeutralRe = regexp.MustCompile(`\[(\d{4})\]\s+([A-Z][A-Za-z]*(?:\s+ER)?)\s+(\d+)`)

	// bracketVolumeRe matches "[YEAR] VOLUME SERIES PAGE", the year-bracketed
	// report form used by UK and NZ series ("[1936] 2 All ER 1602") and some
	// state reports ("[2002] 1 Qd R 662").
	bracketVolumeRe = regexp.MustCompile(`\[(\d{4})\]\s+(\d+)\s+([A-Z][A-Za-z]*(?:\s+(?:R|ER))?)\s+(\d+)`)

	// traditionalRe matches "(YEAR) VOLUME REPORTER PAGE".
	traditionalRe = regexp.MustCompile(`\((\d{4})\)\s+(\d+)\s+([A-Z][A-Za-z]*(?:\s+(?:R|ER))?)\s+(\d+)`)

	// usRe matches "VOLUME REPORTER PAGE (YEAR)" for American reporters.
	usRe = regexp.MustCompile(`(\d+)\s+((?:U\.S\.|S\.\s?Ct\.|F\.(?:2d|3d)?|F\.\s?Supp\.))\s+(\d+)\s+\((\d{4})\)`)

	// caseNameRe matches a trailing "Party v Party" immediately before a
	// citation. Party tokens are capitalized words, possibly several.
	caseNameRe = regexp.MustCompile(`([A-Z][\w'&.-]*(?:\s+[A-Z(][\w'&.)-]*)*)\s+v\s+([A-Z][\w'&.-]*(?:\s+[A-Z(][\w'&.)-]*)*)\s*$`)

	wsRe = regexp.MustCompile(`\s+`)
)

// Normalize collapses whitespace runs and upper-cases the court/series token
// of any bracket-form citation in s. Normalize is idempotent: applying it to
// its own output is a no-op.
func Normalize(s string) string {
	s = strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
	return mediumNeutralRe.ReplaceAllStringFunc(s, func(m string) string {
		g := mediumNeutralRe.FindStringSubmatch(m)
		court := strings.ToUpper(wsRe.ReplaceAllString(g[2], " "))
		// Australian abbreviations keep their canonical mixed case
		// ("FamCAFC"), which is how the lookup endpoint spells them.
		if canon, ok := canonicalCourt(g[2]); ok {
			court = canon
		}
		return fmt.Sprintf("[%s] %s %s", g[1], court, g[3])
	})
}

// canonicalCourt resolves a court token to its canonical Australian spelling,
// case-insensitively.
func canonicalCourt(tok string) (string, bool) {
	up := strings.ToUpper(strings.TrimSpace(tok))
	for abbr := range australianCourts {
		if strings.ToUpper(abbr) == up {
			return abbr, true
		}
	}
	return "", false
}

// Key returns the normalized cache key for c: "kind|year|court|number".
// The key is a pure function of the citation's normalized fields.
func Key(c schema.Citation) string {
	court := strings.ToUpper(wsRe.ReplaceAllString(strings.TrimSpace(c.Court), " "))
	return fmt.Sprintf("%s|%d|%s|%s", c.Kind, c.Year, court, c.Number)
}

// rawMatch is one matcher hit before overlap resolution.
type rawMatch struct {
	span schema.Span
	cite schema.Citation
}

// Extract parses text and returns all citations found, in order of first
// appearance. Overlapping matches are resolved longest-first; a traditional
// citation immediately following a medium-neutral citation (parallel form)
// is merged into a single Citation carrying both spans.
func Extract(text string) []schema.Citation {
	var matches []rawMatch
	matches = append(matches, matchMediumNeutral(text)...)
	matches = append(matches, matchBracketVolume(text)...)
	matches = append(matches, matchTraditional(text)...)
	matches = append(matches, matchUS(text)...)

	// Longest/most specific match wins on overlap. Sort by offset, then by
	// descending length so the longer match is kept first.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].span.Offset != matches[j].span.Offset {
			return matches[i].span.Offset < matches[j].span.Offset
		}
		return matches[i].span.Length > matches[j].span.Length
	})

	var kept []rawMatch
	lastEnd := -1
	for _, m := range matches {
		if m.span.Offset < lastEnd {
			continue // overlaps a longer, earlier match
		}
		kept = append(kept, m)
		lastEnd = m.span.End()
	}

	return mergeParallel(text, kept)
}

// mergeParallel collapses "X v Y [1992] HCA 23; (1992) 175 CLR 1" into one
// logical citation with two spans. A traditional match is considered the
// parallel form when only a short separator ("; ", ", ") and the same year
// lie between it and the preceding medium-neutral match.
func mergeParallel(text string, kept []rawMatch) []schema.Citation {
	var out []schema.Citation
	for i := 0; i < len(kept); i++ {
		m := kept[i]
		c := m.cite
		c.Spans = []schema.Span{m.span}
		if i+1 < len(kept) {
			next := kept[i+1]
			if c.Kind == schema.KindMediumNeutral &&
				next.cite.Kind == schema.KindTraditional &&
				next.cite.Year == c.Year &&
				isParallelSeparator(text[m.span.End():next.span.Offset]) {
				c.Spans = append(c.Spans, next.span)
				c.Volume = next.cite.Volume
				i++ // consume the parallel form
			}
		}
		out = append(out, c)
	}
	return out
}

// isParallelSeparator reports whether the text between two citation spans is
// a parallel-citation separator: at most a few characters of punctuation.
func isParallelSeparator(between string) bool {
	if len(between) > 3 {
		return false
	}
	trimmed := strings.Trim(between, "; ,")
	return trimmed == ""
}

func matchMediumNeutral(text string) []rawMatch {
	var out []rawMatch
	for _, loc := range mediumNeutralRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		year, _ := strconv.Atoi(text[loc[2]:loc[3]])
		court := strings.TrimSpace(text[loc[4]:loc[5]])
		number := text[loc[6]:loc[7]]

		cite := schema.Citation{
			Raw:      Normalize(raw),
			Year:     year,
			Number:   number,
			CaseName: precedingCaseName(text, loc[0]),
		}
		up := strings.ToUpper(wsRe.ReplaceAllString(court, " "))
		switch {
		case isAustralianCourt(court):
			canon, _ := canonicalCourt(court)
			cite.Kind = schema.KindMediumNeutral
			cite.Court = canon
			cite.Jurisdiction = australianCourts[canon]
		case internationalSeries[up] != "":
			cite.Kind = schema.KindInternational
			cite.Court = up
			cite.Jurisdiction = internationalSeries[up]
		default:
			// Unknown abbreviation: no jurisdiction, nothing to look up. The
			// online verifier reports these as unrecognized.
			cite.Kind = schema.KindUnrecognized
			cite.Court = up
		}
		out = append(out, rawMatch{
			span: schema.Span{Offset: loc[0], Length: loc[1] - loc[0]},
			cite: cite,
		})
	}
	return out
}

func matchBracketVolume(text string) []rawMatch {
	var out []rawMatch
	for _, loc := range bracketVolumeRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		year, _ := strconv.Atoi(text[loc[2]:loc[3]])
		volume := text[loc[4]:loc[5]]
		series := strings.ToUpper(wsRe.ReplaceAllString(strings.TrimSpace(text[loc[6]:loc[7]]), " "))
		page := text[loc[8]:loc[9]]

		cite := schema.Citation{
			Raw:      Normalize(raw),
			Year:     year,
			Court:    series,
			Number:   page,
			Volume:   volume,
			CaseName: precedingCaseName(text, loc[0]),
		}
		switch {
		case internationalSeries[series] != "":
			cite.Kind = schema.KindInternational
			cite.Jurisdiction = internationalSeries[series]
		case australianReporters[series] != "":
			cite.Kind = schema.KindTraditional
			cite.Jurisdiction = australianReporters[series]
		default:
			cite.Kind = schema.KindTraditional
		}
		out = append(out, rawMatch{
			span: schema.Span{Offset: loc[0], Length: loc[1] - loc[0]},
			cite: cite,
		})
	}
	return out
}

func matchTraditional(text string) []rawMatch {
	var out []rawMatch
	for _, loc := range traditionalRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		year, _ := strconv.Atoi(text[loc[2]:loc[3]])
		volume := text[loc[4]:loc[5]]
		reporter := strings.ToUpper(wsRe.ReplaceAllString(strings.TrimSpace(text[loc[6]:loc[7]]), " "))
		page := text[loc[8]:loc[9]]

		cite := schema.Citation{
			Raw:      Normalize(raw),
			Year:     year,
			Court:    reporter,
			Number:   page,
			Volume:   volume,
			CaseName: precedingCaseName(text, loc[0]),
		}
		switch {
		case australianReporters[reporter] != "":
			cite.Kind = schema.KindTraditional
			cite.Jurisdiction = australianReporters[reporter]
		case internationalSeries[reporter] != "":
			cite.Kind = schema.KindInternational
			cite.Jurisdiction = internationalSeries[reporter]
		default:
			cite.Kind = schema.KindTraditional
		}
		out = append(out, rawMatch{
			span: schema.Span{Offset: loc[0], Length: loc[1] - loc[0]},
			cite: cite,
		})
	}
	return out
}

func matchUS(text string) []rawMatch {
	var out []rawMatch
	for _, loc := range usRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		volume := text[loc[2]:loc[3]]
		reporter := strings.ToUpper(strings.TrimSpace(text[loc[4]:loc[5]]))
		page := text[loc[6]:loc[7]]
		year, _ := strconv.Atoi(text[loc[8]:loc[9]])

		if !usReporters[reporter] {
			continue
		}
		out = append(out, rawMatch{
			span: schema.Span{Offset: loc[0], Length: loc[1] - loc[0]},
			cite: schema.Citation{
				Raw:          Normalize(raw),
				Kind:         schema.KindInternational,
				Year:         year,
				Court:        reporter,
				Number:       page,
				Volume:       volume,
				Jurisdiction: "us",
				CaseName:     precedingCaseName(text, loc[0]),
			},
		})
	}
	return out
}

// isAustralianCourt reports whether tok is a known Australian medium-neutral
// court abbreviation (case-insensitive).
func isAustralianCourt(tok string) bool {
	_, ok := canonicalCourt(tok)
	return ok
}

// maxCaseNameLookback bounds how far before a citation the case name is
// searched for.
const maxCaseNameLookback = 120

// precedingCaseName returns the "X v Y" case name ending immediately before
// offset, or "" when none is present.
func precedingCaseName(text string, offset int) string {
	start := offset - maxCaseNameLookback
	if start < 0 {
		start = 0
	}
	prefix := strings.TrimRight(text[start:offset], " ")
	m := caseNameRe.FindStringSubmatch(prefix)
	if m == nil {
		return ""
	}
	return wsRe.ReplaceAllString(strings.TrimSpace(m[0]), " ")
}

// PrecedingCaseNameSpan returns the span of the "X v Y" case name ending
// immediately before offset. ok is false when none is present. Used by the
// surgical editor, which must remove the case name along with the citation.
func PrecedingCaseNameSpan(text string, offset int) (schema.Span, bool) {
	start := offset - maxCaseNameLookback
	if start < 0 {
		start = 0
	}
	prefix := strings.TrimRight(text[start:offset], " ")
	loc := caseNameRe.FindStringIndex(prefix)
	if loc == nil {
		return schema.Span{}, false
	}
	return schema.Span{Offset: start + loc[0], Length: loc[1] - loc[0]}, true
}
