// Package chunk splits long documents into model-sized pieces, preferring
// paragraph boundaries and falling back to sentence and then hard breaks.
package chunk

import "strings"

// DefaultSize is the target chunk size in runes, comfortably inside the
// context window of every supported provider.
const DefaultSize = 12000

// Split breaks text into chunks of at most size runes. A non-positive size
// uses DefaultSize. Paragraphs are kept whole where possible; a paragraph
// longer than size is split at sentence boundaries, and only a boundary-free
// run is hard-cut.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= size {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
			curLen = 0
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		pLen := len([]rune(para))
		if pLen > size {
			flush()
			for _, piece := range splitLong(para, size) {
				chunks = append(chunks, piece)
			}
			continue
		}
		if curLen+pLen+2 > size {
			flush()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(para)
		curLen += pLen
	}
	flush()
	return chunks
}

// splitLong breaks an oversized paragraph at sentence boundaries, hard-cutting
// only when a single sentence exceeds size.
func splitLong(para string, size int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			curLen = 0
		}
	}

	for _, sent := range sentences(para) {
		sLen := len([]rune(sent))
		if sLen > size {
			flush()
			runes := []rune(sent)
			for len(runes) > size {
				out = append(out, string(runes[:size]))
				runes = runes[size:]
			}
			if len(runes) > 0 {
				out = append(out, string(runes))
			}
			continue
		}
		if curLen+sLen+1 > size {
			flush()
		}
		if curLen > 0 {
			cur.WriteString(" ")
			curLen++
		}
		cur.WriteString(sent)
		curLen += sLen
	}
	flush()
	return out
}

// sentences naively splits on terminator-plus-space. Good enough for
// chunking; nothing downstream depends on exact sentence boundaries.
func sentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if (s[i] == '.' || s[i] == '!' || s[i] == '?') && s[i+1] == ' ' {
			out = append(out, strings.TrimSpace(s[start:i+1]))
			start = i + 2
		}
	}
	if start < len(s) {
		out = append(out, strings.TrimSpace(s[start:]))
	}
	return out
}
