package sentencepiece

import (
	"testing"

	"github.com/gomlx/tokenclass/hub"
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignPieces(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		pieces []string
		want   []api.TokenSpan
	}{
		{"single word", "Paris", []string{"▁Par", "is"}, []api.TokenSpan{{Start: 0, End: 3}, {Start: 3, End: 5}}},
		{"two words", "hello world", []string{"▁hello", "▁world"}, []api.TokenSpan{{Start: 0, End: 5}, {Start: 6, End: 11}}},
		{"lone metaspace at start", "John", []string{"▁", "John"}, []api.TokenSpan{{Start: 0, End: 0}, {Start: 0, End: 4}}},
		{"lone metaspace after space", "a  b", []string{"▁a", "▁", "b"}, []api.TokenSpan{{Start: 0, End: 1}, {Start: 2, End: 3}, {Start: 3, End: 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, alignPieces(tt.text, tt.pieces))
		})
	}
}

// loadFlanT5 loads a SentencePiece tokenizer from the Hub, skipping the test if it's not reachable.
func loadFlanT5(t *testing.T) *Tokenizer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test that downloads from HuggingFace Hub in short mode")
	}
	repo := hub.New("google/flan-t5-small")
	if !repo.HasFile(ModelFile) {
		t.Skipf("%q not available in repo", ModelFile)
	}
	baseTok, err := New(nil, repo)
	require.NoError(t, err)
	return baseTok.(*Tokenizer)
}

func TestEncodeWithSpans(t *testing.T) {
	tok := loadFlanT5(t)
	inputs := []string{
		"hello",
		"hello world",
		"The quick brown fox jumps over the lazy dog.",
		"Multiple  spaces   here",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			result := tok.EncodeWithSpans(input)
			assert.Equal(t, tok.Encode(input), result.IDs)
			require.Len(t, result.Spans, len(result.IDs))
			for i, span := range result.Spans {
				assert.GreaterOrEqual(t, span.Start, 0, "token %d", i)
				assert.LessOrEqual(t, span.End, len(input), "token %d", i)
				assert.LessOrEqual(t, span.Start, span.End, "token %d", i)
			}
		})
	}
}

func TestEncodeWords(t *testing.T) {
	tok := loadFlanT5(t)
	words := []string{"John", "lives", "in", "Paris"}
	enc := tok.EncodeWords(words)
	require.Equal(t, enc.Len(), len(enc.WordIDs))
	lastWord := -1
	for i, wordID := range enc.WordIDs {
		assert.GreaterOrEqual(t, wordID, lastWord, "word ids must be non-decreasing")
		lastWord = wordID
		span := enc.Offsets[i]
		assert.LessOrEqual(t, span.End, len(words[wordID]))
	}
	assert.Equal(t, len(words)-1, lastWord)

	prefix, suffix := tok.SingleSequenceTemplate()
	assert.Empty(t, prefix)
	assert.Equal(t, []int{tok.Info.EndOfSentenceID}, suffix)
}
