package tokenizers

import (
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/pkg/errors"
)

// FixedLength encodes pre-split words into model inputs of exactly MaxLen positions: the words'
// tokens are wrapped with the tokenizer's special tokens, truncated and then padded.
//
// Special and padding positions have offset (0,0) and word index api.NoWord; padding positions
// have attention mask 0.
//
// It is immutable after creation and safe for concurrent use if the underlying tokenizer is.
type FixedLength struct {
	tokenizer      api.WordsTokenizer
	maxLen         int
	prefix, suffix []int
	padID          int
}

// FixedLengthOption configures NewFixedLength.
type FixedLengthOption func(f *FixedLength)

// WithoutSpecialTokens disables the special tokens wrapping the sequence.
func WithoutSpecialTokens() FixedLengthOption {
	return func(f *FixedLength) {
		f.prefix, f.suffix = nil, nil
	}
}

// WithSpecialTokens sets the special tokens prepended and appended to the sequence.
func WithSpecialTokens(prefix, suffix []int) FixedLengthOption {
	return func(f *FixedLength) {
		f.prefix, f.suffix = prefix, suffix
	}
}

// WithPadID sets the id used for padding positions.
func WithPadID(padID int) FixedLengthOption {
	return func(f *FixedLength) {
		f.padID = padID
	}
}

// NewFixedLength creates a FixedLength encoder for sequences of maxLen positions.
//
// By default the special tokens are taken from the tokenizer's api.SequenceTemplate if it
// implements it, or else from its beginning- and end-of-sentence tokens (which fall back
// to [CLS] and [SEP] for BERT-style tokenizers). The pad id is the tokenizer's pad token, or 0.
//
// maxLen must leave room for at least one token besides the special tokens.
func NewFixedLength(tokenizer api.WordsTokenizer, maxLen int, options ...FixedLengthOption) (*FixedLength, error) {
	f := &FixedLength{tokenizer: tokenizer, maxLen: maxLen}
	if template, ok := tokenizer.(api.SequenceTemplate); ok {
		f.prefix, f.suffix = template.SingleSequenceTemplate()
	} else {
		if id, err := tokenizer.SpecialTokenID(api.TokBeginningOfSentence); err == nil {
			f.prefix = []int{id}
		}
		if id, err := tokenizer.SpecialTokenID(api.TokEndOfSentence); err == nil {
			f.suffix = []int{id}
		}
	}
	if id, err := tokenizer.SpecialTokenID(api.TokPad); err == nil {
		f.padID = id
	}
	for _, option := range options {
		option(f)
	}
	if numSpecial := len(f.prefix) + len(f.suffix); maxLen <= numSpecial {
		return nil, errors.Errorf("maxLen=%d must be larger than the number of special tokens (%d)", maxLen, numSpecial)
	}
	return f, nil
}

// MaxLen returns the fixed number of positions of every encoding.
func (f *FixedLength) MaxLen() int {
	return f.maxLen
}

// Tokenizer returns the underlying tokenizer.
func (f *FixedLength) Tokenizer() api.WordsTokenizer {
	return f.tokenizer
}

// EncodeWords encodes the pre-split words into exactly MaxLen positions. Tokens that don't fit are
// dropped from the end of the sentence, and the result is marked Truncated.
//
// If the tokenizer reports no word indices (WordIDs not matching its IDs), the result has nil
// WordIDs; missing offsets are taken as empty spans.
func (f *FixedLength) EncodeWords(words []string) api.WordsEncoding {
	enc := f.tokenizer.EncodeWords(words)
	numContent := min(enc.Len(), f.maxLen-len(f.prefix)-len(f.suffix))
	hasOffsets := len(enc.Offsets) == enc.Len()
	hasWordIDs := len(enc.WordIDs) == enc.Len()

	result := api.WordsEncoding{
		IDs:               make([]int, 0, f.maxLen),
		AttentionMask:     make([]int, 0, f.maxLen),
		Offsets:           make([]api.TokenSpan, 0, f.maxLen),
		WordIDs:           make([]int, 0, f.maxLen),
		SpecialTokensMask: make([]int, 0, f.maxLen),
	}
	for _, id := range f.prefix {
		result.Append(id, api.TokenSpan{}, api.NoWord, true)
	}
	for ii := range numContent {
		span, wordID := api.TokenSpan{}, api.NoWord
		if hasOffsets {
			span = enc.Offsets[ii]
		}
		if hasWordIDs {
			wordID = enc.WordIDs[ii]
		}
		result.Append(enc.IDs[ii], span, wordID, false)
	}
	for _, id := range f.suffix {
		result.Append(id, api.TokenSpan{}, api.NoWord, true)
	}
	for result.Len() < f.maxLen {
		result.Append(f.padID, api.TokenSpan{}, api.NoWord, true)
		result.AttentionMask[result.Len()-1] = 0
	}
	result.Truncated = numContent < enc.Len()
	if !hasWordIDs {
		result.WordIDs = nil
	}
	return result
}
