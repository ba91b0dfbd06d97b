// Package api defines the Tokenizer API.
// It's kept separate to break the cyclic dependency between the `tokenizers` package and its
// implementations, so users can import `tokenizers` and get the default implementations.
package api

// TokenSpan represents the byte span of a token in the original text.
// Start and End are byte offsets (not rune offsets), suitable for slicing
// Go strings directly: originalText[span.Start:span.End].
//
// For encodings of pre-split words (see WordsEncoding) the span is relative to the word
// the token came from, and (0,0) marks special and padding positions.
type TokenSpan struct {
	Start int // start byte position (inclusive)
	End   int // end byte position (exclusive)
}

// IsEmpty returns whether the span covers no bytes, as is the case of special tokens and padding.
func (s TokenSpan) IsEmpty() bool {
	return s.Start == 0 && s.End == 0
}

// EncodingResult contains tokens with their spans in the original text.
type EncodingResult struct {
	IDs   []int       // token IDs
	Spans []TokenSpan // byte spans for each token (use originalText[span.Start:span.End] to extract)
}

// NoWord is the word index of positions that don't come from any input word: special tokens and padding.
const NoWord = -1

// WordsEncoding is the encoding of a sentence given as a list of words (pre-split).
//
// All slices have the same length, one entry per token position.
type WordsEncoding struct {
	IDs []int

	// AttentionMask is 1 for real tokens (including special tokens) and 0 for padding.
	AttentionMask []int

	// Offsets of each token within the word it came from.
	Offsets []TokenSpan

	// WordIDs holds the index of the input word each token came from, or NoWord.
	WordIDs []int

	// SpecialTokensMask is 1 for special tokens and padding, 0 for tokens from the words.
	SpecialTokensMask []int

	// Truncated is set when tokens of the words were dropped to fit a maximum length.
	Truncated bool
}

// Len returns the number of positions in the encoding.
func (e WordsEncoding) Len() int {
	return len(e.IDs)
}

// Append one position to the encoding.
func (e *WordsEncoding) Append(id int, span TokenSpan, wordID int, special bool) {
	e.IDs = append(e.IDs, id)
	e.AttentionMask = append(e.AttentionMask, 1)
	e.Offsets = append(e.Offsets, span)
	e.WordIDs = append(e.WordIDs, wordID)
	if special {
		e.SpecialTokensMask = append(e.SpecialTokensMask, 1)
	} else {
		e.SpecialTokensMask = append(e.SpecialTokensMask, 0)
	}
}

// Tokenizer interface allows one convert test to "tokens" (integer ids) and back.
//
// It also allows mapping of special tokens: tokens with a common semantic (like padding) but that
// may map to different ids (int) for different tokenizers.
type Tokenizer interface {
	Encode(text string) []int
	Decode([]int) string

	// SpecialTokenID returns ID for given special token if registered, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// TokenizerWithSpans extends Tokenizer with span tracking capability.
// This is useful for token classification tasks (NER, chunking) where you need
// to map token predictions back to byte positions in the original text.
type TokenizerWithSpans interface {
	Tokenizer
	// EncodeWithSpans returns tokens along with their byte spans in the original text.
	EncodeWithSpans(text string) EncodingResult
}

// WordsTokenizer extends Tokenizer with encoding of pre-split words, the input format of
// token classification datasets.
type WordsTokenizer interface {
	Tokenizer

	// EncodeWords encodes each word independently and concatenates the results, without adding
	// special tokens, padding or truncation. Offsets are relative to each word and WordIDs
	// point back to the index of the word.
	//
	// Offsets and WordIDs must either have one entry per token or be left empty: tokenizers
	// without word indices leave WordIDs nil, and alignment then relies on the offsets.
	EncodeWords(words []string) WordsEncoding
}

// SequenceTemplate is implemented by tokenizers that know which special tokens wrap a single
// sequence (e.g. "[CLS] ... [SEP]" for BERT, "<s> ... </s>" for RoBERTa).
type SequenceTemplate interface {
	// SingleSequenceTemplate returns the ids of the special tokens to prepend and append to a sequence.
	SingleSequenceTemplate() (prefix, suffix []int)
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokBeginningOfSentence SpecialToken = iota
	TokEndOfSentence
	TokUnknown
	TokPad
	TokMask
	TokClassification
	TokSpecialTokensCount
)

var specialTokenNames = [...]string{
	"beginning_of_sentence",
	"end_of_sentence",
	"unknown",
	"pad",
	"mask",
	"classification",
	"special_tokens_count",
}

// String implements fmt.Stringer.
func (t SpecialToken) String() string {
	if t < 0 || int(t) >= len(specialTokenNames) {
		return "invalid_special_token"
	}
	return specialTokenNames[t]
}
