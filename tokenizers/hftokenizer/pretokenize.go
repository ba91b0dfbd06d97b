package hftokenizer

import (
	"unicode"
	"unicode/utf8"
)

// metaspace is the default replacement of spaces used by the Metaspace pre-tokenizer (U+2581).
const metaspace = "▁"

// preTokenize splits the normalized text into pieces using the pre-tokenizer.
func (t *Tokenizer) preTokenize(text alignedText) []alignedText {
	if t.tokenizer.PreTokenizer == nil {
		// Default: split on whitespace
		return splitWhitespace(text)
	}
	return applyPreTokenizer(text, t.tokenizer.PreTokenizer)
}

func applyPreTokenizer(text alignedText, pt *PreTokenizer) []alignedText {
	switch pt.Type {
	case "BertPreTokenizer":
		return splitRunes(text, isWhitespace, isPunctuation)
	case "Whitespace":
		return splitWordRuns(text)
	case "WhitespaceSplit":
		return splitWhitespace(text)
	case "Punctuation":
		return splitRunes(text, func(rune) bool { return false }, isPunctuation)
	case "Digits":
		return splitRunes(text, func(rune) bool { return false }, unicode.IsDigit)
	case "ByteLevel":
		if pt.AddPrefixSpace && text.Len() > 0 && text.text[0] != ' ' {
			text = text.prepend(" ")
		}
		pieces := splitByteLevel(text)
		for ii := range pieces {
			pieces[ii] = pieces[ii].mapBytes()
		}
		return pieces
	case "Metaspace":
		replacement := pt.Replacement
		if replacement == "" {
			replacement = metaspace
		}
		addPrefix := pt.AddPrefixSpace || pt.PrependScheme == "always" || pt.PrependScheme == "first"
		if addPrefix && text.Len() > 0 && text.text[0] != ' ' {
			text = text.prepend(" ")
		}
		return splitMetaspace(text.replaceAll(" ", replacement), replacement)
	case "Sequence":
		result := []alignedText{text}
		for ii := range pt.PreTokenizers {
			var next []alignedText
			for _, piece := range result {
				next = append(next, applyPreTokenizer(piece, &pt.PreTokenizers[ii])...)
			}
			result = next
		}
		return result
	default:
		// "Split" with regex patterns is not supported: split on whitespace instead.
		return splitWhitespace(text)
	}
}

func splitWhitespace(text alignedText) []alignedText {
	return splitRunes(text, isWhitespace, func(rune) bool { return false })
}

// splitRunes splits text on runes for which isSeparator is true (they are dropped), and
// isolates runes for which isolate is true into their own piece.
func splitRunes(text alignedText, isSeparator, isolate func(r rune) bool) []alignedText {
	var pieces []alignedText
	start := -1
	for pos, r := range text.text {
		switch {
		case isSeparator(r):
			if start >= 0 {
				pieces = append(pieces, text.slice(start, pos))
				start = -1
			}
		case isolate(r):
			if start >= 0 {
				pieces = append(pieces, text.slice(start, pos))
				start = -1
			}
			pieces = append(pieces, text.slice(pos, pos+utf8.RuneLen(r)))
		default:
			if start < 0 {
				start = pos
			}
		}
	}
	if start >= 0 {
		pieces = append(pieces, text.slice(start, text.Len()))
	}
	return pieces
}

// splitWordRuns implements the "Whitespace" pre-tokenizer, equivalent to the regex `\w+|[^\w\s]+`.
func splitWordRuns(text alignedText) []alignedText {
	const (
		classSpace = iota
		classWord
		classOther
	)
	classOf := func(r rune) int {
		switch {
		case unicode.IsSpace(r):
			return classSpace
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			return classWord
		default:
			return classOther
		}
	}
	return splitClassRuns(text, classOf, classSpace, false)
}

// splitByteLevel splits text the way GPT-2 does before byte-level BPE: runs of letters, of digits
// or of other symbols, each optionally preceded by a single space.
func splitByteLevel(text alignedText) []alignedText {
	const (
		classSpace = iota
		classLetter
		classNumber
		classOther
	)
	classOf := func(r rune) int {
		switch {
		case unicode.IsSpace(r):
			return classSpace
		case unicode.IsLetter(r):
			return classLetter
		case unicode.IsNumber(r):
			return classNumber
		default:
			return classOther
		}
	}
	return splitClassRuns(text, classOf, classSpace, true)
}

// splitClassRuns groups consecutive runes of the same class. Runes of spaceClass are dropped,
// unless attachSpace is set, in which case a single space preceding a run is attached to it
// and the remaining spaces form their own piece.
func splitClassRuns(text alignedText, classOf func(r rune) int, spaceClass int, attachSpace bool) []alignedText {
	var pieces []alignedText
	start, currentClass := -1, spaceClass
	flush := func(end int) {
		if start >= 0 && end > start {
			pieces = append(pieces, text.slice(start, end))
		}
		start = -1
	}
	for pos, r := range text.text {
		class := classOf(r)
		if class == currentClass && start >= 0 {
			continue
		}
		if class == spaceClass {
			flush(pos)
			currentClass = spaceClass
			if attachSpace {
				start = pos
			}
			continue
		}
		if currentClass == spaceClass && attachSpace && start >= 0 {
			// Leave at most one space attached to the new run.
			lastSpace := pos - 1
			for lastSpace > start && text.text[lastSpace]&0xC0 == 0x80 {
				lastSpace--
			}
			if lastSpace > start {
				pieces = append(pieces, text.slice(start, lastSpace))
			}
			start = lastSpace
		} else {
			flush(pos)
			start = pos
		}
		currentClass = class
	}
	if currentClass != spaceClass || attachSpace {
		flush(text.Len())
	}
	return pieces
}

// splitMetaspace splits the text before each replacement character, keeping it attached to the
// following piece.
func splitMetaspace(text alignedText, replacement string) []alignedText {
	var pieces []alignedText
	start := 0
	for pos := 0; pos < text.Len(); {
		if pos > start && hasPrefixAt(text.text, replacement, pos) {
			pieces = append(pieces, text.slice(start, pos))
			start = pos
		}
		_, size := utf8.DecodeRuneInString(text.text[pos:])
		pos += size
	}
	if start < text.Len() {
		pieces = append(pieces, text.slice(start, text.Len()))
	}
	return pieces
}

func hasPrefixAt(s, prefix string, pos int) bool {
	return len(s)-pos >= len(prefix) && s[pos:pos+len(prefix)] == prefix
}
