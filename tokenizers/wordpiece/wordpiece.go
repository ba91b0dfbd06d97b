// Package wordpiece implements a BERT WordPiece tokenizer from a "vocab.txt" file, for
// repositories that don't ship a tokenizer.json. It's based on github.com/sugarme/tokenizer,
// configured for uncased BERT vocabularies (lowercasing and accent stripping).
package wordpiece

import (
	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"

	"github.com/gomlx/tokenclass/hub"
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// VocabFile is the name of the WordPiece vocabulary in a repository: one token per line, the
// line number is the token id.
const VocabFile = "vocab.txt"

// Tokenizer wraps a sugarme/tokenizer WordPiece (BERT-style) tokenizer.
type Tokenizer struct {
	t *tk.Tokenizer

	unkID, padID, clsID, sepID, maskID int
}

var (
	_ api.Tokenizer        = &Tokenizer{}
	_ api.WordsTokenizer   = &Tokenizer{}
	_ api.SequenceTemplate = &Tokenizer{}
)

// New creates a WordPiece tokenizer from the "vocab.txt" of the repository.
//
// It implements a tokenizers.TokenizerConstructor function signature.
func New(config *api.Config, repo *hub.Repo) (api.Tokenizer, error) {
	if !repo.HasFile(VocabFile) {
		return nil, errors.Errorf("%q file not found in repo %q", VocabFile, repo)
	}
	vocabPath, err := repo.DownloadFile(VocabFile)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't download %q", VocabFile)
	}
	if config != nil && !config.DoLowerCase {
		klog.Warningf("%s: tokenizer config is cased, but %q vocabularies are always lowercased", repo, VocabFile)
	}
	return NewFromVocab(vocabPath)
}

// NewFromVocab loads a vocab.txt file and builds a BERT WordPiece tokenizer. The vocabulary
// must contain the "[UNK]" token.
func NewFromVocab(vocabPath string) (*Tokenizer, error) {
	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load WordPiece vocabulary from %q", vocabPath)
	}
	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	tok := &Tokenizer{t: t}
	for _, special := range []struct {
		id    *int
		token string
	}{
		{&tok.unkID, "[UNK]"},
		{&tok.padID, "[PAD]"},
		{&tok.clsID, "[CLS]"},
		{&tok.sepID, "[SEP]"},
		{&tok.maskID, "[MASK]"},
	} {
		*special.id = -1
		if id, ok := t.TokenToId(special.token); ok {
			*special.id = id
		}
	}
	if tok.unkID < 0 {
		return nil, errors.Errorf("vocabulary %q has no \"[UNK]\" token", vocabPath)
	}
	return tok, nil
}

func (w *Tokenizer) encode(text string) (*tk.Encoding, error) {
	return w.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(text)), false)
}

// Encode returns the text encoded into a sequence of ids, without special tokens.
// Failures (not expected for valid UTF-8 input) are logged and return nil.
func (w *Tokenizer) Encode(text string) []int {
	enc, err := w.encode(text)
	if err != nil {
		klog.Errorf("failed to encode %q: %+v", text, err)
		return nil
	}
	return enc.GetIds()
}

// EncodeWords encodes each word separately; offsets are relative to each word.
// It implements api.WordsTokenizer.
func (w *Tokenizer) EncodeWords(words []string) api.WordsEncoding {
	var result api.WordsEncoding
	for wordIdx, word := range words {
		enc, err := w.encode(word)
		if err != nil {
			klog.Errorf("failed to encode word #%d %q: %+v", wordIdx, word, err)
			result.Append(w.unkID, api.TokenSpan{Start: 0, End: len(word)}, wordIdx, false)
			continue
		}
		offsets := enc.GetOffsets()
		for ii, id := range enc.GetIds() {
			var span api.TokenSpan
			if ii < len(offsets) && len(offsets[ii]) == 2 {
				span = api.TokenSpan{Start: offsets[ii][0], End: offsets[ii][1]}
			}
			result.Append(id, span, wordIdx, false)
		}
	}
	return result
}

// Decode returns the text from a sequence of ids, skipping special tokens.
func (w *Tokenizer) Decode(ids []int) string {
	return w.t.Decode(ids, true)
}

// SpecialTokenID returns the id of the special token; BOS and EOS map to [CLS] and [SEP].
func (w *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	id := -1
	switch token {
	case api.TokUnknown:
		id = w.unkID
	case api.TokPad:
		id = w.padID
	case api.TokBeginningOfSentence, api.TokClassification:
		id = w.clsID
	case api.TokEndOfSentence:
		id = w.sepID
	case api.TokMask:
		id = w.maskID
	}
	if id < 0 {
		return 0, errors.Errorf("special token %s not found in vocabulary", token)
	}
	return id, nil
}

// SingleSequenceTemplate returns [CLS] ... [SEP], as BertProcessing does.
// It implements api.SequenceTemplate.
func (w *Tokenizer) SingleSequenceTemplate() (prefix, suffix []int) {
	if w.clsID >= 0 {
		prefix = []int{w.clsID}
	}
	if w.sepID >= 0 {
		suffix = []int{w.sepID}
	}
	return
}

// VocabSize returns the number of tokens in the vocabulary.
func (w *Tokenizer) VocabSize() int {
	return w.t.GetVocabSize(true)
}
