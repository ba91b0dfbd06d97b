package hftokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// token is a model output: the token id and the byte range [start, end) it covers
// in the pre-tokenized piece it came from.
type token struct {
	id         int
	start, end int
}

// tokenizePiece tokenizes a single pre-tokenized piece according to the model type.
func (t *Tokenizer) tokenizePiece(piece string) []token {
	if piece == "" {
		return nil
	}
	if id, ok := t.addedTokens[piece]; ok {
		return []token{{id: id, start: 0, end: len(piece)}}
	}

	switch t.tokenizer.Model.Type {
	case "WordPiece":
		return t.wordPieceTokenize(piece)
	case "BPE":
		return t.bpeTokenize(piece)
	case "Unigram":
		return t.unigramTokenize(piece)
	default:
		if id, ok := t.tokenizer.Model.Vocab[piece]; ok {
			return []token{{id: id, start: 0, end: len(piece)}}
		}
		return t.unknown(0, len(piece))
	}
}

// unknown returns the unknown token for the given range, or nothing if there is no unknown token.
func (t *Tokenizer) unknown(start, end int) []token {
	if t.unkID < 0 {
		return nil
	}
	return []token{{id: t.unkID, start: start, end: end}}
}

// wordPieceTokenize implements WordPiece tokenization (used by BERT): greedy longest match
// first, continuation pieces prefixed with "##". If any part of the word can't be matched,
// the whole word becomes the unknown token.
func (t *Tokenizer) wordPieceTokenize(word string) []token {
	maxChars := t.tokenizer.Model.MaxInputCharsPerWord
	if maxChars == 0 {
		maxChars = 100
	}
	if utf8.RuneCountInString(word) > maxChars {
		return t.unknown(0, len(word))
	}
	prefix := t.tokenizer.Model.ContinuingSubwordPrefix
	if prefix == "" {
		prefix = "##"
	}

	var tokens []token
	for start := 0; start < len(word); {
		end := len(word)
		found := false
		for start < end {
			substr := word[start:end]
			if start > 0 {
				substr = prefix + substr
			}
			if id, ok := t.tokenizer.Model.Vocab[substr]; ok {
				tokens = append(tokens, token{id: id, start: start, end: end})
				found = true
				break
			}
			_, size := utf8.DecodeLastRuneInString(word[start:end])
			end -= size
		}
		if !found {
			return t.unknown(0, len(word))
		}
		start = end
	}
	return tokens
}

// bpeSymbol is a BPE symbol being merged, with the byte range it covers.
type bpeSymbol struct {
	text       string
	start, end int
}

// bpeTokenize implements BPE tokenization (used by GPT-2, RoBERTa): starting from one symbol
// per rune, it repeatedly merges the adjacent pair with the lowest merge rank.
func (t *Tokenizer) bpeTokenize(word string) []token {
	model := &t.tokenizer.Model
	symbols := make([]bpeSymbol, 0, len(word))
	for pos, r := range word {
		symbols = append(symbols, bpeSymbol{text: string(r), start: pos, end: pos + utf8.RuneLen(r)})
	}
	if model.EndOfWordSuffix != "" && len(symbols) > 0 {
		symbols[len(symbols)-1].text += model.EndOfWordSuffix
	}

	// A word that exists whole in the vocabulary needs no merging.
	if id, ok := model.Vocab[word+model.EndOfWordSuffix]; ok && len(symbols) > 1 {
		return []token{{id: id, start: 0, end: len(word)}}
	}

	for len(symbols) > 1 {
		bestRank, bestIdx := -1, -1
		for i := 0; i < len(symbols)-1; i++ {
			pair := symbols[i].text + " " + symbols[i+1].text
			if rank, ok := t.mergeRanks[pair]; ok && (bestRank == -1 || rank < bestRank) {
				bestRank, bestIdx = rank, i
			}
		}
		if bestIdx == -1 {
			break // No more merges possible
		}
		merged := bpeSymbol{
			text:  symbols[bestIdx].text + symbols[bestIdx+1].text,
			start: symbols[bestIdx].start,
			end:   symbols[bestIdx+1].end,
		}
		symbols[bestIdx] = merged
		symbols = append(symbols[:bestIdx+1], symbols[bestIdx+2:]...)
	}

	var tokens []token
	for _, sym := range symbols {
		if id, ok := model.Vocab[sym.text]; ok {
			tokens = append(tokens, token{id: id, start: sym.start, end: sym.end})
			continue
		}
		if model.ByteFallback {
			if fallback, ok := t.byteFallback(sym); ok {
				tokens = append(tokens, fallback...)
				continue
			}
		}
		tokens = append(tokens, t.unknown(sym.start, sym.end)...)
	}
	if model.FuseUnk {
		tokens = t.fuseUnknown(tokens)
	}
	return tokens
}

// byteFallback encodes the symbol as "<0xNN>" byte tokens, all spanning the symbol.
func (t *Tokenizer) byteFallback(sym bpeSymbol) ([]token, bool) {
	text := strings.TrimSuffix(sym.text, t.tokenizer.Model.EndOfWordSuffix)
	tokens := make([]token, 0, len(text))
	for ii := 0; ii < len(text); ii++ {
		id, ok := t.tokenizer.Model.Vocab[fmt.Sprintf("<0x%02X>", text[ii])]
		if !ok {
			return nil, false
		}
		tokens = append(tokens, token{id: id, start: sym.start, end: sym.end})
	}
	return tokens, true
}

// fuseUnknown merges consecutive unknown tokens into one.
func (t *Tokenizer) fuseUnknown(tokens []token) []token {
	fused := tokens[:0]
	for _, tok := range tokens {
		if n := len(fused); n > 0 && tok.id == t.unkID && fused[n-1].id == t.unkID {
			fused[n-1].end = tok.end
			continue
		}
		fused = append(fused, tok)
	}
	return fused
}

// unigramTokenize implements a simplified Unigram tokenization: greedy longest-match over runes,
// instead of the Viterbi search over piece scores.
func (t *Tokenizer) unigramTokenize(word string) []token {
	var tokens []token
	for start := 0; start < len(word); {
		end := len(word)
		found := false
		for end > start {
			if id, ok := t.tokenizer.Model.Vocab[word[start:end]]; ok {
				tokens = append(tokens, token{id: id, start: start, end: end})
				found = true
				break
			}
			_, size := utf8.DecodeLastRuneInString(word[start:end])
			end -= size
		}
		if found {
			start = end
			continue
		}
		_, size := utf8.DecodeRuneInString(word[start:])
		tokens = append(tokens, t.unknown(start, start+size)...)
		start += size
	}
	return tokens
}
