package hftokenizer

import (
	"strings"

	"github.com/gomlx/tokenclass/tokenizers/api"
)

// Encode converts text to a sequence of token IDs. No special tokens are added.
func (t *Tokenizer) Encode(text string) []int {
	return t.EncodeWithSpans(text).IDs
}

// EncodeWithSpans returns the tokens of the text along with their byte spans in the text.
// It implements api.TokenizerWithSpans.
func (t *Tokenizer) EncodeWithSpans(text string) api.EncodingResult {
	ids, spans := t.encode(text)
	return api.EncodingResult{IDs: ids, Spans: spans}
}

// EncodeWords encodes each of the pre-split words and concatenates the results, as HuggingFace's
// tokenizers do with `is_split_into_words=True`. Offsets are relative to each word, and WordIDs
// hold the index of the word of each token. No special tokens, padding or truncation are applied,
// see tokenizers.FixedLength for that.
//
// For byte-level pre-tokenizers, every word but the first (or every word, if add_prefix_space
// is set) is encoded with a leading space, the way it would appear in running text. That space
// is never part of the offsets.
//
// It implements api.WordsTokenizer.
func (t *Tokenizer) EncodeWords(words []string) api.WordsEncoding {
	var enc api.WordsEncoding
	for wordIdx, word := range words {
		prefix := t.wordPrefix(wordIdx)
		ids, spans := t.encode(prefix + word)
		for ii, id := range ids {
			span := spans[ii]
			span.Start = max(span.Start-len(prefix), 0)
			span.End = max(span.End-len(prefix), 0)
			enc.Append(id, span, wordIdx, false)
		}
	}
	return enc
}

// wordPrefix returns the text prepended to the word at wordIdx when encoding pre-split words.
func (t *Tokenizer) wordPrefix(wordIdx int) string {
	pt := t.findPreTokenizer("ByteLevel")
	if pt == nil {
		return ""
	}
	if wordIdx > 0 || pt.AddPrefixSpace {
		return " "
	}
	return ""
}

// findPreTokenizer returns the pre-tokenizer of the given type, searching into sequences.
func (t *Tokenizer) findPreTokenizer(preTokenizerType string) *PreTokenizer {
	var find func(pt *PreTokenizer) *PreTokenizer
	find = func(pt *PreTokenizer) *PreTokenizer {
		if pt == nil {
			return nil
		}
		if pt.Type == preTokenizerType {
			return pt
		}
		for ii := range pt.PreTokenizers {
			if found := find(&pt.PreTokenizers[ii]); found != nil {
				return found
			}
		}
		return nil
	}
	return find(t.tokenizer.PreTokenizer)
}

// encode runs the full pipeline: added tokens are split out first, the remaining segments are
// normalized, pre-tokenized and tokenized by the model. Spans are mapped back to the text and
// trimmed of surrounding whitespace.
func (t *Tokenizer) encode(text string) (ids []int, spans []api.TokenSpan) {
	for _, seg := range t.splitAddedTokens(text) {
		if seg.addedID >= 0 {
			ids = append(ids, seg.addedID)
			spans = append(spans, api.TokenSpan{Start: seg.start, End: seg.end})
			continue
		}
		normalized := t.normalize(newAlignedText(text[seg.start:seg.end], seg.start))
		for _, piece := range t.preTokenize(normalized) {
			for _, tok := range t.tokenizePiece(piece.text) {
				ids = append(ids, tok.id)
				spans = append(spans, trimSpan(text, piece.span(tok.start, tok.end)))
			}
		}
	}
	return
}

// trimSpan removes leading and trailing whitespace of text from the span.
func trimSpan(text string, span api.TokenSpan) api.TokenSpan {
	for span.Start < span.End && isASCIISpace(text[span.Start]) {
		span.Start++
	}
	for span.End > span.Start && isASCIISpace(text[span.End-1]) {
		span.End--
	}
	return span
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// segment of the input text: either an added token (addedID >= 0) or text to be tokenized.
type segment struct {
	start, end int
	addedID    int
}

// splitAddedTokens finds the occurrences of added tokens in the text, leftmost first and
// longest first on ties.
func (t *Tokenizer) splitAddedTokens(text string) []segment {
	var segments []segment
	pos := 0
	for pos < len(text) {
		bestIdx, bestLen, bestID := -1, 0, -1
		for content, id := range t.addedTokens {
			if content == "" {
				continue
			}
			idx := strings.Index(text[pos:], content)
			if idx < 0 {
				continue
			}
			idx += pos
			if bestIdx == -1 || idx < bestIdx || (idx == bestIdx && len(content) > bestLen) {
				bestIdx, bestLen, bestID = idx, len(content), id
			}
		}
		if bestIdx == -1 {
			break
		}
		if bestIdx > pos {
			segments = append(segments, segment{start: pos, end: bestIdx, addedID: -1})
		}
		segments = append(segments, segment{start: bestIdx, end: bestIdx + bestLen, addedID: bestID})
		pos = bestIdx + bestLen
	}
	if pos < len(text) {
		segments = append(segments, segment{start: pos, end: len(text), addedID: -1})
	}
	return segments
}
