// Package sentencepiece implements a tokenizer based on SentencePiece models ("tokenizer.model"),
// as used by T5, Llama, Gemma and XLM-R style models.
package sentencepiece

import (
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/tokenclass/hub"
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/pkg/errors"
)

// ModelFile is the name of the SentencePiece model proto in a repository.
const ModelFile = "tokenizer.model"

// New creates a SentencePiece tokenizer based on the "tokenizer.model" file of the repository.
//
// It implements a tokenizers.TokenizerConstructor function signature.
func New(config *api.Config, repo *hub.Repo) (api.Tokenizer, error) {
	if !repo.HasFile(ModelFile) {
		return nil, errors.Errorf("%q file not found in repo %q", ModelFile, repo)
	}
	modelFile, err := repo.DownloadFile(ModelFile)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't download %q", ModelFile)
	}
	return NewFromFile(config, modelFile)
}

// NewFromFile creates a SentencePiece tokenizer from a local model proto file.
// The config (from tokenizer_config.json) is optional and may be nil.
func NewFromFile(config *api.Config, modelFile string) (*Tokenizer, error) {
	proc, err := esentencepiece.NewProcessorFromPath(modelFile)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece tokenizer from %q", modelFile)
	}
	return &Tokenizer{
		Processor: proc,
		Info:      proc.ModelInfo(),
		config:    config,
	}, nil
}

// Tokenizer implements api.Tokenizer based on SentencePiece tokenizer by Google.
type Tokenizer struct {
	*esentencepiece.Processor
	Info   *esentencepiece.ModelInfo
	config *api.Config
}

var (
	_ api.Tokenizer          = &Tokenizer{}
	_ api.TokenizerWithSpans = &Tokenizer{}
	_ api.WordsTokenizer     = &Tokenizer{}
	_ api.SequenceTemplate   = &Tokenizer{}
)

// Encode returns the text encoded into a sequence of ids.
func (p *Tokenizer) Encode(text string) []int {
	tokens := p.Processor.Encode(text)
	ids := make([]int, len(tokens))
	for ii, tok := range tokens {
		ids[ii] = tok.ID
	}
	return ids
}

// EncodeWithSpans returns the text encoded into a sequence of ids along with their byte spans.
// It implements api.TokenizerWithSpans.
func (p *Tokenizer) EncodeWithSpans(text string) api.EncodingResult {
	tokens := p.Processor.Encode(text)
	ids := make([]int, len(tokens))
	pieces := make([]string, len(tokens))
	for ii, tok := range tokens {
		ids[ii] = tok.ID
		pieces[ii] = tok.Text
	}
	return api.EncodingResult{IDs: ids, Spans: alignPieces(text, pieces)}
}

// EncodeWords encodes each word separately, so each one starts with its own "▁" piece, the same
// as HuggingFace's `is_split_into_words=True`. Offsets are relative to each word.
// It implements api.WordsTokenizer.
func (p *Tokenizer) EncodeWords(words []string) api.WordsEncoding {
	var enc api.WordsEncoding
	for wordIdx, word := range words {
		result := p.EncodeWithSpans(word)
		for ii, id := range result.IDs {
			enc.Append(id, result.Spans[ii], wordIdx, false)
		}
	}
	return enc
}

const metaspace = "▁"

// alignPieces finds the byte span of each piece in the text. SentencePiece replaces spaces by
// "▁" (U+2581), which is matched to the whitespace in the text. A piece that is only "▁" gets
// the span of the whitespace before it, or an empty span at the start of the text.
func alignPieces(text string, pieces []string) []api.TokenSpan {
	spans := make([]api.TokenSpan, len(pieces))
	pos := 0
	for ii, piece := range pieces {
		matchPiece, hasLeadingSpace := strings.CutPrefix(piece, metaspace)
		if hasLeadingSpace {
			for pos < len(text) && isSpace(text[pos]) {
				pos++
			}
		}
		start := pos
		if matchPiece == "" {
			if hasLeadingSpace && start > 0 && isSpace(text[start-1]) {
				spans[ii] = api.TokenSpan{Start: start - 1, End: pos}
			} else {
				spans[ii] = api.TokenSpan{Start: pos, End: pos}
			}
			continue
		}
		if foundAt := strings.Index(text[min(pos, len(text)):], matchPiece); foundAt >= 0 {
			start = pos + foundAt
			pos = start + len(matchPiece)
		} else {
			// Normalized piece (e.g. byte fallback or NFKC): advance by its length.
			pos = min(pos+len(matchPiece), len(text))
		}
		spans[ii] = api.TokenSpan{Start: start, End: pos}
	}
	return spans
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Decode returns the text from a sequence of ids.
func (p *Tokenizer) Decode(ids []int) string {
	return p.Processor.Decode(ids)
}

// SpecialTokenID returns the token for the given symbol, or an error if not known.
func (p *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	var id int
	switch token {
	case api.TokUnknown:
		id = p.Info.UnknownID
	case api.TokPad:
		id = p.Info.PadID
	case api.TokBeginningOfSentence:
		id = p.Info.BeginningOfSentenceID
	case api.TokEndOfSentence:
		id = p.Info.EndOfSentenceID
	default:
		return 0, errors.Errorf("unknown special token: %s (%d)", token, int(token))
	}
	if id < 0 {
		return 0, errors.Errorf("special token %s not defined in the model", token)
	}
	return id, nil
}

// SingleSequenceTemplate returns the special tokens around a single sequence: BOS and EOS
// according to the add_bos_token/add_eos_token of the tokenizer config. Without a config, or if
// neither is set, only EOS is appended, as T5 does.
// It implements api.SequenceTemplate.
func (p *Tokenizer) SingleSequenceTemplate() (prefix, suffix []int) {
	addBos, addEos := false, true
	if p.config != nil && (p.config.AddBosToken || p.config.AddEosToken) {
		addBos, addEos = p.config.AddBosToken, p.config.AddEosToken
	}
	if id, err := p.SpecialTokenID(api.TokBeginningOfSentence); addBos && err == nil {
		prefix = []int{id}
	}
	if id, err := p.SpecialTokenID(api.TokEndOfSentence); addEos && err == nil {
		suffix = []int{id}
	}
	return
}
