package hftokenizer

import (
	"strings"
	"testing"

	"github.com/gomlx/tokenclass/tokenizers/api"
)

// Test tokenizer.json content for a WordPiece model (BERT-style)
var testWordPieceTokenizerJSON = []byte(`{
  "version": "1.0",
  "truncation": null,
  "padding": null,
  "added_tokens": [
    {"id": 0, "content": "[PAD]", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true},
    {"id": 100, "content": "[UNK]", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true},
    {"id": 101, "content": "[CLS]", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true},
    {"id": 102, "content": "[SEP]", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true},
    {"id": 103, "content": "[MASK]", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true}
  ],
  "normalizer": {
    "type": "BertNormalizer",
    "lowercase": true
  },
  "pre_tokenizer": {
    "type": "BertPreTokenizer"
  },
  "post_processor": null,
  "decoder": {
    "type": "WordPiece",
    "prefix": "##"
  },
  "model": {
    "type": "WordPiece",
    "unk_token": "[UNK]",
    "continuing_subword_prefix": "##",
    "max_input_chars_per_word": 100,
    "vocab": {
      "[PAD]": 0,
      "hello": 1,
      "world": 2,
      "test": 3,
      "##ing": 4,
      "##ed": 5,
      "[UNK]": 100,
      "[CLS]": 101,
      "[SEP]": 102,
      "[MASK]": 103,
      "the": 104,
      "a": 105,
      "is": 106,
      "this": 107
    }
  }
}`)

// Test tokenizer.json content for a BPE model (GPT-2-style)
var testBPETokenizerJSON = []byte(`{
  "version": "1.0",
  "truncation": null,
  "padding": null,
  "added_tokens": [
    {"id": 0, "content": "<|endoftext|>", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true},
    {"id": 1, "content": "<|padding|>", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true}
  ],
  "normalizer": null,
  "pre_tokenizer": {
    "type": "ByteLevel",
    "add_prefix_space": false
  },
  "post_processor": null,
  "decoder": {
    "type": "ByteLevel"
  },
  "model": {
    "type": "BPE",
    "unk_token": null,
    "vocab": {
      "hello": 2,
      "world": 3,
      "hel": 4,
      "lo": 5,
      "wor": 6,
      "ld": 7,
      "test": 8,
      " ": 9,
      "Ġhello": 10,
      "Ġworld": 11,
      "Ġtest": 12
    },
    "merges": [
      "h e",
      "l o",
      "w o",
      "r l",
      "he l",
      "hel lo",
      "wo r",
      "wor ld"
    ]
  }
}`)

func TestNewFromContent_WordPiece(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	if tok.GetTokenizerType() != "WordPiece" {
		t.Errorf("expected type WordPiece, got %s", tok.GetTokenizerType())
	}
}

func TestNewFromContent_BPE(t *testing.T) {
	tok, err := NewFromContent(nil, testBPETokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	if tok.GetTokenizerType() != "BPE" {
		t.Errorf("expected type BPE, got %s", tok.GetTokenizerType())
	}
}

func TestNewFromContent_UnsupportedModel(t *testing.T) {
	_, err := NewFromContent(nil, []byte(`{"model": {"type": "WordLevel", "vocab": {}}}`))
	if err == nil {
		t.Error("expected error for unsupported model type")
	}
}

func TestWordPiece_Encode(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{"single word in vocab", "hello", []int{1}},
		{"multiple words", "hello world", []int{1, 2}},
		{"word with subword", "testing", []int{3, 4}}, // test + ##ing
		{"lowercased", "Hello WORLD", []int{1, 2}},
		{"accents stripped", "héllo", []int{1}},
		{"unknown word", "xyz", []int{100}},
		{"added token kept whole", "hello [MASK] world", []int{1, 103, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Encode(tt.input)
			if !intSliceEqual(got, tt.want) {
				t.Errorf("Encode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWordPiece_EncodeWithSpans(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	input := "Héllo  testing"
	result := tok.EncodeWithSpans(input)
	wantIDs := []int{1, 3, 4}
	wantSpans := []api.TokenSpan{{Start: 0, End: 6}, {Start: 8, End: 12}, {Start: 12, End: 15}}
	if !intSliceEqual(result.IDs, wantIDs) {
		t.Fatalf("EncodeWithSpans(%q).IDs = %v, want %v", input, result.IDs, wantIDs)
	}
	for i, want := range wantSpans {
		if result.Spans[i] != want {
			t.Errorf("span #%d = %+v, want %+v (%q)", i, result.Spans[i], want, input[result.Spans[i].Start:result.Spans[i].End])
		}
	}
}

func TestWordPiece_EncodeWords(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	enc := tok.EncodeWords([]string{"Testing", "hello", "world!"})
	wantIDs := []int{3, 4, 1, 2, 100}
	wantWords := []int{0, 0, 1, 2, 2}
	wantOffsets := []api.TokenSpan{{Start: 0, End: 4}, {Start: 4, End: 7}, {Start: 0, End: 5}, {Start: 0, End: 5}, {Start: 5, End: 6}}
	if !intSliceEqual(enc.IDs, wantIDs) {
		t.Fatalf("EncodeWords IDs = %v, want %v", enc.IDs, wantIDs)
	}
	if !intSliceEqual(enc.WordIDs, wantWords) {
		t.Errorf("EncodeWords WordIDs = %v, want %v", enc.WordIDs, wantWords)
	}
	for i, want := range wantOffsets {
		if enc.Offsets[i] != want {
			t.Errorf("offset #%d = %+v, want %+v", i, enc.Offsets[i], want)
		}
	}
	for i := range enc.IDs {
		if enc.AttentionMask[i] != 1 || enc.SpecialTokensMask[i] != 0 {
			t.Errorf("position %d: attention %d, special %d, want 1, 0", i, enc.AttentionMask[i], enc.SpecialTokensMask[i])
		}
	}
}

func TestWordPiece_Decode(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	tests := []struct {
		name  string
		input []int
		want  string
	}{
		{"single word", []int{1}, "hello"},
		{"multiple words", []int{1, 2}, "hello world"},
		{"word with subword", []int{3, 4}, "testing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Decode(tt.input)
			if got != tt.want {
				t.Errorf("Decode(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBPE_EncodeAndDecode(t *testing.T) {
	tok, err := NewFromContent(nil, testBPETokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	result := tok.EncodeWithSpans("hello world")
	if want := []int{2, 11}; !intSliceEqual(result.IDs, want) {
		t.Fatalf("EncodeWithSpans IDs = %v, want %v", result.IDs, want)
	}
	if want := (api.TokenSpan{Start: 6, End: 11}); result.Spans[1] != want {
		t.Errorf("span of \"Ġworld\" = %+v, want %+v (leading space trimmed)", result.Spans[1], want)
	}
	if got := tok.Decode(result.IDs); got != "hello world" {
		t.Errorf("Decode(%v) = %q, want %q", result.IDs, got, "hello world")
	}

	// Without a leading space the word maps to the plain "world" entry.
	if got, want := tok.Encode("world"), []int{3}; !intSliceEqual(got, want) {
		t.Errorf("Encode(world) = %v, want %v", got, want)
	}
}

func TestBPE_EncodeWords(t *testing.T) {
	tok, err := NewFromContent(nil, testBPETokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	enc := tok.EncodeWords([]string{"hello", "world", "test"})
	if want := []int{2, 11, 12}; !intSliceEqual(enc.IDs, want) {
		t.Fatalf("EncodeWords IDs = %v, want %v", enc.IDs, want)
	}
	for i, want := range []api.TokenSpan{{Start: 0, End: 5}, {Start: 0, End: 5}, {Start: 0, End: 4}} {
		if enc.Offsets[i] != want {
			t.Errorf("offset #%d = %+v, want %+v", i, enc.Offsets[i], want)
		}
	}
	if want := []int{0, 1, 2}; !intSliceEqual(enc.WordIDs, want) {
		t.Errorf("WordIDs = %v, want %v", enc.WordIDs, want)
	}
}

func TestMergesAsPairs(t *testing.T) {
	content := []byte(`{
		"model": {
			"type": "BPE",
			"vocab": {"a": 0, "b": 1, "ab": 2},
			"merges": [["a", "b"]]
		}
	}`)
	tok, err := NewFromContent(nil, content)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	if got, want := tok.Encode("abab"), []int{2, 2}; !intSliceEqual(got, want) {
		t.Errorf("Encode(abab) = %v, want %v", got, want)
	}
}

func TestUnigram_VocabAsList(t *testing.T) {
	content := []byte(`{
		"pre_tokenizer": {"type": "Metaspace", "replacement": "▁", "add_prefix_space": true},
		"decoder": {"type": "Metaspace"},
		"model": {
			"type": "Unigram",
			"unk_id": 0,
			"vocab": [["<unk>", 0.0], ["▁hel", -1.0], ["lo", -1.5], ["▁world", -1.0]]
		}
	}`)
	tok, err := NewFromContent(nil, content)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	enc := tok.EncodeWords([]string{"hello", "world"})
	if want := []int{1, 2, 3}; !intSliceEqual(enc.IDs, want) {
		t.Fatalf("EncodeWords IDs = %v, want %v", enc.IDs, want)
	}
	for i, want := range []api.TokenSpan{{Start: 0, End: 3}, {Start: 3, End: 5}, {Start: 0, End: 5}} {
		if enc.Offsets[i] != want {
			t.Errorf("offset #%d = %+v, want %+v", i, enc.Offsets[i], want)
		}
	}
	if got := tok.Decode(enc.IDs); got != "hello world" {
		t.Errorf("Decode = %q, want %q", got, "hello world")
	}
}

func TestSingleSequenceTemplate(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	prefix, suffix := tok.SingleSequenceTemplate()
	if !intSliceEqual(prefix, []int{101}) || !intSliceEqual(suffix, []int{102}) {
		t.Errorf("SingleSequenceTemplate() = %v, %v, want [101], [102]", prefix, suffix)
	}

	withTemplate := strings.Replace(string(testWordPieceTokenizerJSON), `"post_processor": null`, `"post_processor": {
		"type": "TemplateProcessing",
		"single": [{"SpecialToken": {"id": "[CLS]", "type_id": 0}}, {"Sequence": {"id": "A", "type_id": 0}}, {"SpecialToken": {"id": "[SEP]", "type_id": 0}}],
		"special_tokens": {"[CLS]": {"id": "[CLS]", "ids": [101], "tokens": ["[CLS]"]}, "[SEP]": {"id": "[SEP]", "ids": [102], "tokens": ["[SEP]"]}}
	}`, 1)
	tok, err = NewFromContent(nil, []byte(withTemplate))
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	prefix, suffix = tok.SingleSequenceTemplate()
	if !intSliceEqual(prefix, []int{101}) || !intSliceEqual(suffix, []int{102}) {
		t.Errorf("TemplateProcessing SingleSequenceTemplate() = %v, %v, want [101], [102]", prefix, suffix)
	}

	withRoberta := strings.Replace(string(testBPETokenizerJSON), `"post_processor": null`,
		`"post_processor": {"type": "RobertaProcessing", "sep": ["<|endoftext|>", 0], "cls": ["<|endoftext|>", 0]}`, 1)
	tok, err = NewFromContent(nil, []byte(withRoberta))
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	prefix, suffix = tok.SingleSequenceTemplate()
	if !intSliceEqual(prefix, []int{0}) || !intSliceEqual(suffix, []int{0}) {
		t.Errorf("RobertaProcessing SingleSequenceTemplate() = %v, %v, want [0], [0]", prefix, suffix)
	}
}

func TestWordPiece_SpecialTokenID(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	tests := []struct {
		name    string
		token   api.SpecialToken
		want    int
		wantErr bool
	}{
		{"unknown token", api.TokUnknown, 100, false},
		{"pad token", api.TokPad, 0, false},
		{"mask token", api.TokMask, 103, false},
		{"cls/bos token", api.TokBeginningOfSentence, 101, false}, // Falls back to CLS
		{"sep/eos token", api.TokEndOfSentence, 102, false},       // Falls back to SEP
		{"invalid token", api.TokSpecialTokensCount, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tok.SpecialTokenID(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("SpecialTokenID(%v) error = %v, wantErr %v", tt.token, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SpecialTokenID(%v) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestSpecialTokensFromConfig(t *testing.T) {
	config := &api.Config{BosToken: "<|endoftext|>", EosToken: "<|endoftext|>", PadToken: "<|padding|>"}
	tok, err := NewFromContent(config, testBPETokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	for token, want := range map[api.SpecialToken]int{
		api.TokBeginningOfSentence: 0,
		api.TokEndOfSentence:       0,
		api.TokPad:                 1,
	} {
		got, err := tok.SpecialTokenID(token)
		if err != nil || got != want {
			t.Errorf("SpecialTokenID(%s) = %d, %v, want %d", token, got, err, want)
		}
	}
}

func TestVocabSize(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	// Vocab has 14 entries, and all added tokens are also in the vocab.
	if size := tok.VocabSize(); size != 14 {
		t.Errorf("VocabSize() = %d, want 14", size)
	}
}

func TestTokenToID_IDToToken(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}

	if id, ok := tok.TokenToID("hello"); !ok || id != 1 {
		t.Errorf("TokenToID(hello) = %d, %v, want 1, true", id, ok)
	}
	if token, ok := tok.IDToToken(1); !ok || token != "hello" {
		t.Errorf("IDToToken(1) = %q, %v, want hello, true", token, ok)
	}
	if id, ok := tok.TokenToID("[CLS]"); !ok || id != 101 {
		t.Errorf("TokenToID([CLS]) = %d, %v, want 101, true", id, ok)
	}
}

func TestGetVocab(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	vocab := tok.GetVocab()
	if vocab["hello"] != 1 {
		t.Errorf("vocab[hello] = %d, want 1", vocab["hello"])
	}
	if vocab["[CLS]"] != 101 {
		t.Errorf("vocab[[CLS]] = %d, want 101", vocab["[CLS]"])
	}
}

func TestAddedTokensList(t *testing.T) {
	tok, err := NewFromContent(nil, testWordPieceTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	added := tok.AddedTokensList()
	if len(added) != 5 {
		t.Errorf("AddedTokensList() length = %d, want 5", len(added))
	}
	for i := 1; i < len(added); i++ {
		if added[i-1].ID > added[i].ID {
			t.Error("AddedTokensList() not sorted by ID")
			break
		}
	}
}

func TestBertPreTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Hello, world!", []string{"Hello", ",", "world", "!"}},
		{"It's a test.", []string{"It", "'", "s", "a", "test", "."}},
		{"simple text", []string{"simple", "text"}},
	}
	bert := &PreTokenizer{Type: "BertPreTokenizer"}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := pieceTexts(applyPreTokenizer(newAlignedText(tt.input, 0), bert))
			if !strSliceEqual(got, tt.want) {
				t.Errorf("BertPreTokenizer(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWhitespacePreTokenize(t *testing.T) {
	got := pieceTexts(applyPreTokenizer(newAlignedText("Hey friend!!  How are_you?", 0), &PreTokenizer{Type: "Whitespace"}))
	want := []string{"Hey", "friend", "!!", "How", "are_you", "?"}
	if !strSliceEqual(got, want) {
		t.Errorf("Whitespace pre-tokenizer = %v, want %v", got, want)
	}
}

func TestByteLevelSplit(t *testing.T) {
	got := pieceTexts(splitByteLevel(newAlignedText("hello world  42!", 0)))
	want := []string{"hello", " world", " ", " 42", "!"}
	if !strSliceEqual(got, want) {
		t.Errorf("splitByteLevel = %q, want %q", got, want)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello world", "hello world"},
		{"hello\tworld", "hello world"},
		{"hello\nworld", "hello world"},
		{"hello\x00world", "helloworld"}, // null char removed
	}
	n := &Normalizer{Type: "BertNormalizer"}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := applyNormalizer(newAlignedText(tt.input, 0), n)
			if got.text != tt.want {
				t.Errorf("clean(%q) = %q, want %q", tt.input, got.text, tt.want)
			}
			if len(got.starts) != len(got.text) || len(got.ends) != len(got.text) {
				t.Errorf("alignment has %d/%d entries for %d bytes", len(got.starts), len(got.ends), len(got.text))
			}
		})
	}
}

func TestAlignedTextSpans(t *testing.T) {
	text := newAlignedText("Ünïcode", 10)
	lower := applyNormalizer(text, &Normalizer{Type: "BertNormalizer", Lowercase: true})
	if lower.text != "unicode" {
		t.Fatalf("normalized = %q, want %q", lower.text, "unicode")
	}
	// "u" comes from the 2-byte "Ü", "n" from the single byte "n".
	if span := lower.span(0, 1); span != (api.TokenSpan{Start: 10, End: 12}) {
		t.Errorf("span(0,1) = %+v", span)
	}
	if span := lower.span(1, 2); span != (api.TokenSpan{Start: 12, End: 13}) {
		t.Errorf("span(1,2) = %+v", span)
	}
	if span := lower.span(0, lower.Len()); span != (api.TokenSpan{Start: 10, End: 19}) {
		t.Errorf("full span = %+v", span)
	}
}

// testReplacementCharTokenizerJSON has no normalizer, so U+FFFD reaches the model untouched.
var testReplacementCharTokenizerJSON = []byte(`{
  "added_tokens": [{"id": 0, "content": "[UNK]", "special": true}],
  "pre_tokenizer": {"type": "WhitespaceSplit"},
  "model": {
    "type": "WordPiece",
    "unk_token": "[UNK]",
    "vocab": {"[UNK]": 0, "a": 1, "b": 2, "\ufffd": 3}
  }
}`)

func TestEncodeWords_ReplacementCharacter(t *testing.T) {
	tok, err := NewFromContent(nil, testReplacementCharTokenizerJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	enc := tok.EncodeWords([]string{"a", "\uFFFD", "b"})
	wantIDs := []int{1, 3, 2}
	if !intSliceEqual(enc.IDs, wantIDs) {
		t.Fatalf("EncodeWords IDs = %v, want %v", enc.IDs, wantIDs)
	}
	wantOffsets := []api.TokenSpan{{Start: 0, End: 1}, {Start: 0, End: 3}, {Start: 0, End: 1}}
	for i, want := range wantOffsets {
		if enc.Offsets[i] != want {
			t.Errorf("offset #%d = %+v, want %+v", i, enc.Offsets[i], want)
		}
	}

	// "\uFFFDb" has no "##b" continuation, so the whole word is unknown and spans all 4 bytes.
	result := tok.EncodeWithSpans("a \uFFFDb")
	if !intSliceEqual(result.IDs, []int{1, 0}) {
		t.Fatalf("EncodeWithSpans IDs = %v, want [1 0]", result.IDs)
	}
	wantSpans := []api.TokenSpan{{Start: 0, End: 1}, {Start: 2, End: 6}}
	for i, want := range wantSpans {
		if result.Spans[i] != want {
			t.Errorf("span #%d = %+v, want %+v", i, result.Spans[i], want)
		}
	}
}

func TestAlignedTextRuneSizes(t *testing.T) {
	// U+FFFD is a valid 3-byte rune; "\xff" is a single invalid byte.
	text := newAlignedText("x\uFFFDy\xffz", 0)
	tests := []struct {
		start, end int
		want       api.TokenSpan
	}{
		{0, 1, api.TokenSpan{Start: 0, End: 1}},
		{1, 4, api.TokenSpan{Start: 1, End: 4}},
		{2, 3, api.TokenSpan{Start: 1, End: 4}},
		{4, 5, api.TokenSpan{Start: 4, End: 5}},
		{5, 6, api.TokenSpan{Start: 5, End: 6}},
		{6, 7, api.TokenSpan{Start: 6, End: 7}},
	}
	for _, test := range tests {
		if got := text.span(test.start, test.end); got != test.want {
			t.Errorf("span(%d, %d) = %+v, want %+v", test.start, test.end, got, test.want)
		}
	}

	lower := applyNormalizer(newAlignedText("\uFFFDA", 0), &Normalizer{Type: "Lowercase"})
	if lower.text != "\uFFFDa" {
		t.Fatalf("normalized = %q", lower.text)
	}
	if span := lower.span(0, 3); span != (api.TokenSpan{Start: 0, End: 3}) {
		t.Errorf("span of U+FFFD = %+v", span)
	}
	if span := lower.span(3, 4); span != (api.TokenSpan{Start: 3, End: 4}) {
		t.Errorf("span of \"a\" = %+v", span)
	}
}

func TestIsPunctuation(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{'.', true}, {',', true}, {'!', true}, {'?', true}, {';', true}, {':', true},
		{'"', true}, {'\'', true}, {'a', false}, {'1', false}, {' ', false},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			if got := isPunctuation(tt.r); got != tt.want {
				t.Errorf("isPunctuation(%q) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	_, err := NewFromContent(nil, []byte("not valid json"))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestEmptyVocab(t *testing.T) {
	emptyVocabJSON := []byte(`{
		"model": {
			"type": "WordPiece",
			"vocab": {},
			"unk_token": "[UNK]"
		}
	}`)
	tok, err := NewFromContent(nil, emptyVocabJSON)
	if err != nil {
		t.Fatalf("NewFromContent failed: %v", err)
	}
	// Encoding unknown text should return empty (no unk token defined)
	if ids := tok.Encode("hello"); len(ids) != 0 {
		t.Errorf("Encode() with empty vocab = %v, want empty", ids)
	}
}

// Helper functions

func pieceTexts(pieces []alignedText) []string {
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.text
	}
	return texts
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
