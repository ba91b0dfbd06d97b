package hftokenizer

import (
	"strings"
	"unicode/utf8"

	"github.com/gomlx/tokenclass/tokenizers/api"
)

// alignedText is a (transformed) text that remembers, for each of its bytes, the byte span of
// the original text it was derived from. Normalizers and pre-tokenizers work on alignedText,
// so token spans can always be mapped back to the original text.
type alignedText struct {
	text         string
	starts, ends []int
}

// newAlignedText returns an identity alignment of text, where the original text starts at base.
// All bytes of a multi-byte rune map to the span of the whole rune.
func newAlignedText(text string, base int) alignedText {
	a := alignedText{
		text:   text,
		starts: make([]int, len(text)),
		ends:   make([]int, len(text)),
	}
	for pos := range text {
		_, size := utf8.DecodeRuneInString(text[pos:])
		for ii := pos; ii < pos+size; ii++ {
			a.starts[ii] = base + pos
			a.ends[ii] = base + pos + size
		}
	}
	return a
}

func (a alignedText) Len() int { return len(a.text) }

// slice returns the sub-text for the byte range [start, end).
func (a alignedText) slice(start, end int) alignedText {
	return alignedText{
		text:   a.text[start:end],
		starts: a.starts[start:end],
		ends:   a.ends[start:end],
	}
}

// span returns the original span of the byte range [start, end).
func (a alignedText) span(start, end int) api.TokenSpan {
	if len(a.text) == 0 {
		return api.TokenSpan{}
	}
	if end <= start {
		if start >= len(a.text) {
			return api.TokenSpan{Start: a.ends[len(a.text)-1], End: a.ends[len(a.text)-1]}
		}
		return api.TokenSpan{Start: a.starts[start], End: a.starts[start]}
	}
	return api.TokenSpan{Start: a.starts[start], End: a.ends[end-1]}
}

// mapRunes replaces each rune by the output of fn, keeping the alignment of the original rune.
func (a alignedText) mapRunes(fn func(r rune) string) alignedText {
	var (
		sb     strings.Builder
		starts = make([]int, 0, len(a.text))
		ends   = make([]int, 0, len(a.text))
	)
	for pos, r := range a.text {
		_, size := utf8.DecodeRuneInString(a.text[pos:])
		start, end := a.starts[pos], a.ends[pos+size-1]
		out := fn(r)
		sb.WriteString(out)
		for range len(out) {
			starts = append(starts, start)
			ends = append(ends, end)
		}
	}
	return alignedText{text: sb.String(), starts: starts, ends: ends}
}

// prepend a string that has no counterpart in the original text: it's aligned as an empty span
// at the start of the text.
func (a alignedText) prepend(prefix string) alignedText {
	pos := 0
	if len(a.starts) > 0 {
		pos = a.starts[0]
	}
	result := alignedText{
		text:   prefix + a.text,
		starts: make([]int, 0, len(prefix)+len(a.text)),
		ends:   make([]int, 0, len(prefix)+len(a.text)),
	}
	for range len(prefix) {
		result.starts = append(result.starts, pos)
		result.ends = append(result.ends, pos)
	}
	result.starts = append(result.starts, a.starts...)
	result.ends = append(result.ends, a.ends...)
	return result
}

// replaceAll replaces every occurrence of old by replacement; the replacement is aligned to the
// span of the text it replaced.
func (a alignedText) replaceAll(old, replacement string) alignedText {
	if old == "" || !strings.Contains(a.text, old) {
		return a
	}
	var (
		sb     strings.Builder
		starts []int
		ends   []int
	)
	pos := 0
	for pos < len(a.text) {
		idx := strings.Index(a.text[pos:], old)
		if idx < 0 {
			break
		}
		idx += pos
		sb.WriteString(a.text[pos:idx])
		starts = append(starts, a.starts[pos:idx]...)
		ends = append(ends, a.ends[pos:idx]...)
		span := a.span(idx, idx+len(old))
		sb.WriteString(replacement)
		for range len(replacement) {
			starts = append(starts, span.Start)
			ends = append(ends, span.End)
		}
		pos = idx + len(old)
	}
	sb.WriteString(a.text[pos:])
	starts = append(starts, a.starts[pos:]...)
	ends = append(ends, a.ends[pos:]...)
	return alignedText{text: sb.String(), starts: starts, ends: ends}
}

// mapBytes maps each byte through the GPT-2 byte-to-unicode table, as used by byte-level BPE.
func (a alignedText) mapBytes() alignedText {
	var (
		sb     strings.Builder
		starts = make([]int, 0, 2*len(a.text))
		ends   = make([]int, 0, 2*len(a.text))
	)
	for ii := 0; ii < len(a.text); ii++ {
		r := byteToUnicode[a.text[ii]]
		size, _ := sb.WriteRune(r)
		for range size {
			starts = append(starts, a.starts[ii])
			ends = append(ends, a.ends[ii])
		}
	}
	return alignedText{text: sb.String(), starts: starts, ends: ends}
}
