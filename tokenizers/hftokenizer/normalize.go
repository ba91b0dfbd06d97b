package hftokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalize applies the tokenizer.json normalizer to the text, keeping the alignment to the original.
func (t *Tokenizer) normalize(text alignedText) alignedText {
	if t.tokenizer.Normalizer == nil {
		return text
	}
	return applyNormalizer(text, t.tokenizer.Normalizer)
}

func applyNormalizer(text alignedText, n *Normalizer) alignedText {
	switch n.Type {
	case "Lowercase":
		return text.mapRunes(lowercaseRune)
	case "NFD":
		return text.mapRunes(func(r rune) string { return norm.NFD.String(string(r)) })
	case "NFC":
		return text.mapRunes(func(r rune) string { return norm.NFC.String(string(r)) })
	case "NFKC":
		return text.mapRunes(func(r rune) string { return norm.NFKC.String(string(r)) })
	case "NFKD":
		return text.mapRunes(func(r rune) string { return norm.NFKD.String(string(r)) })
	case "StripAccents":
		return text.mapRunes(stripAccentsRune)
	case "BertNormalizer":
		return bertNormalize(text, n)
	case "Sequence":
		for ii := range n.Normalizers {
			text = applyNormalizer(text, &n.Normalizers[ii])
		}
		return text
	case "Replace":
		if n.Pattern != nil && n.Pattern.String != "" {
			return text.replaceAll(n.Pattern.String, n.Content)
		}
		// Regex replacements are not supported.
		return text
	case "Prepend":
		if text.Len() == 0 {
			return text
		}
		return text.prepend(n.Prepend)
	default:
		return text
	}
}

// bertNormalize cleans the text, pads CJK characters with spaces, strips accents and lowercases,
// following the BertNormalizer options. Unset options default to true, and strip_accents
// defaults to the value of lowercase.
func bertNormalize(text alignedText, n *Normalizer) alignedText {
	cleanText := n.CleanText == nil || *n.CleanText
	handleChinese := n.HandleChineseChars == nil || *n.HandleChineseChars
	stripAccents := n.Lowercase
	if n.StripAccents != nil {
		stripAccents = *n.StripAccents
	}
	return text.mapRunes(func(r rune) string {
		if cleanText {
			if r == 0 || r == unicode.ReplacementChar || isControl(r) {
				return ""
			}
			if isWhitespace(r) {
				return " "
			}
		}
		if handleChinese && isChineseChar(r) {
			return " " + string(r) + " "
		}
		s := string(r)
		if stripAccents {
			s = removeAccents(norm.NFD.String(s))
		}
		if n.Lowercase {
			s = strings.ToLower(s)
		}
		return s
	})
}

func lowercaseRune(r rune) string {
	return strings.ToLower(string(r))
}

func stripAccentsRune(r rune) string {
	if unicode.Is(unicode.Mn, r) {
		return ""
	}
	return string(r)
}

func removeAccents(text string) string {
	var result strings.Builder
	for _, r := range text {
		if !unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing
			result.WriteRune(r)
		}
	}
	return result.String()
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	// ASCII punctuation
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// isChineseChar checks the CJK Unified Ideographs blocks, as BERT does.
func isChineseChar(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
