// Package hftokenizer implements a tokenizer for HuggingFace's tokenizer.json format.
// This format is used by the HuggingFace Tokenizers library (the "fast" tokenizers)
// and supports WordPiece (BERT), BPE (GPT-2, RoBERTa), and Unigram models.
//
// Besides plain encoding, it tracks the byte span of every token, so it can encode
// pre-split words for token classification (see Tokenizer.EncodeWords).
package hftokenizer

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/gomlx/tokenclass/hub"
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/pkg/errors"
)

// TokenizerJSON represents the structure of HuggingFace's tokenizer.json file.
type TokenizerJSON struct {
	Version       string          `json:"version"`
	Truncation    json.RawMessage `json:"truncation"`
	Padding       json.RawMessage `json:"padding"`
	AddedTokens   []AddedToken    `json:"added_tokens"`
	Normalizer    *Normalizer     `json:"normalizer"`
	PreTokenizer  *PreTokenizer   `json:"pre_tokenizer"`
	PostProcessor *PostProcessor  `json:"post_processor"`
	Decoder       *Decoder        `json:"decoder"`
	Model         Model           `json:"model"`
}

// AddedToken represents a special token added to the vocabulary.
type AddedToken struct {
	ID         int    `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	Lstrip     bool   `json:"lstrip"`
	Rstrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

// Normalizer represents the normalizer configuration.
type Normalizer struct {
	Type               string       `json:"type"`
	Lowercase          bool         `json:"lowercase"`
	CleanText          *bool        `json:"clean_text"`
	HandleChineseChars *bool        `json:"handle_chinese_chars"`
	StripAccents       *bool        `json:"strip_accents"`
	Normalizers        []Normalizer `json:"normalizers"`
	Pattern            *Pattern     `json:"pattern"`
	Content            string       `json:"content"`
	Prepend            string       `json:"prepend"`
}

// Pattern for regex-based operations.
type Pattern struct {
	Regex  string `json:"Regex,omitempty"`
	String string `json:"String,omitempty"`
}

// PreTokenizer represents the pre-tokenizer configuration.
type PreTokenizer struct {
	Type           string         `json:"type"`
	AddPrefixSpace bool           `json:"add_prefix_space"`
	PrependScheme  string         `json:"prepend_scheme"`
	Replacement    string         `json:"replacement"`
	PreTokenizers  []PreTokenizer `json:"pretokenizers"`
	Pattern        *Pattern       `json:"pattern"`
	Behavior       string         `json:"behavior"`
	Invert         bool           `json:"invert"`
}

// PostProcessor represents the post-processor configuration.
//
// TemplateProcessing uses Single/Pair/SpecialTokens, while BertProcessing and
// RobertaProcessing use Cls/Sep.
type PostProcessor struct {
	Type           string                          `json:"type"`
	Single         []PostProcItem                  `json:"single"`
	Pair           []PostProcItem                  `json:"pair"`
	SpecialTokens  map[string]PostProcSpecialToken `json:"special_tokens"`
	Cls            *TokenWithID                    `json:"cls"`
	Sep            *TokenWithID                    `json:"sep"`
	Processors     []PostProcessor                 `json:"processors"`
	TrimOffsets    *bool                           `json:"trim_offsets"`
	AddPrefixSpace bool                            `json:"add_prefix_space"`
}

// PostProcItem is an item in post-processing.
type PostProcItem struct {
	SpecialToken *struct {
		ID     string `json:"id"`
		TypeID int    `json:"type_id"`
	} `json:"SpecialToken,omitempty"`
	Sequence *struct {
		ID     string `json:"id"`
		TypeID int    `json:"type_id"`
	} `json:"Sequence,omitempty"`
}

// PostProcSpecialToken defines a special token for post-processing.
type PostProcSpecialToken struct {
	ID     string   `json:"id"`
	IDs    []int    `json:"ids"`
	Tokens []string `json:"tokens"`
}

// TokenWithID is a token given as a JSON pair `["[CLS]", 101]`.
type TokenWithID struct {
	Token string
	ID    int
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TokenWithID) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrapf(err, "token with id must be a [token, id] pair")
	}
	if len(pair) != 2 {
		return errors.Errorf("token with id must be a [token, id] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &t.Token); err != nil {
		return errors.Wrapf(err, "invalid token in pair")
	}
	if err := json.Unmarshal(pair[1], &t.ID); err != nil {
		return errors.Wrapf(err, "invalid id in pair")
	}
	return nil
}

// Decoder represents the decoder configuration.
type Decoder struct {
	Type     string    `json:"type"`
	Prefix   string    `json:"prefix"`
	Suffix   string    `json:"suffix"`
	Decoders []Decoder `json:"decoders"`
	Pattern  *Pattern  `json:"pattern"`
	Content  string    `json:"content"`
}

// Model represents the tokenizer model (WordPiece, BPE, or Unigram).
type Model struct {
	Type                    string   `json:"type"`
	Vocab                   Vocab    `json:"vocab"`
	Merges                  Merges   `json:"merges"`
	UnkToken                string   `json:"unk_token"`
	UnkID                   *int     `json:"unk_id"`
	ContinuingSubwordPrefix string   `json:"continuing_subword_prefix"`
	MaxInputCharsPerWord    int      `json:"max_input_chars_per_word"`
	FuseUnk                 bool     `json:"fuse_unk"`
	ByteFallback            bool     `json:"byte_fallback"`
	Dropout                 *float64 `json:"dropout"`
	EndOfWordSuffix         string   `json:"end_of_word_suffix"`
}

// Vocab maps tokens to ids. WordPiece and BPE models store it as a JSON object, while
// Unigram models store a list of [token, score] pairs, where the id is the position.
type Vocab map[string]int

// UnmarshalJSON implements json.Unmarshaler.
func (v *Vocab) UnmarshalJSON(data []byte) error {
	var asMap map[string]int
	if err := json.Unmarshal(data, &asMap); err == nil {
		*v = asMap
		return nil
	}
	var asList [][]json.RawMessage
	if err := json.Unmarshal(data, &asList); err != nil {
		return errors.Wrapf(err, "vocab is neither a map nor a list of [token, score] pairs")
	}
	*v = make(Vocab, len(asList))
	for id, entry := range asList {
		if len(entry) == 0 {
			return errors.Errorf("vocab entry #%d is empty", id)
		}
		var token string
		if err := json.Unmarshal(entry[0], &token); err != nil {
			return errors.Wrapf(err, "vocab entry #%d", id)
		}
		(*v)[token] = id
	}
	return nil
}

// Merges of a BPE model, in priority order. The tokenizer.json format stores each merge
// either as "a b" or as ["a", "b"]; both are normalized to "a b".
type Merges []string

// UnmarshalJSON implements json.Unmarshaler.
func (m *Merges) UnmarshalJSON(data []byte) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrapf(err, "merges must be a list")
	}
	*m = make(Merges, 0, len(entries))
	for ii, entry := range entries {
		var merge string
		if err := json.Unmarshal(entry, &merge); err == nil {
			*m = append(*m, merge)
			continue
		}
		var pair []string
		if err := json.Unmarshal(entry, &pair); err != nil || len(pair) != 2 {
			return errors.Errorf("merge #%d is neither \"a b\" nor [\"a\", \"b\"]: %s", ii, entry)
		}
		*m = append(*m, pair[0]+" "+pair[1])
	}
	return nil
}

// Tokenizer implements the api.Tokenizer interface for HuggingFace tokenizer.json files.
type Tokenizer struct {
	config     *api.Config
	tokenizer  *TokenizerJSON
	idToToken  map[int]string
	mergeRanks map[string]int // For BPE: maps "token1 token2" to merge priority

	// Special token IDs
	unkID  int
	padID  int
	bosID  int
	eosID  int
	clsID  int
	sepID  int
	maskID int

	// Added tokens lookup (content -> id)
	addedTokens map[string]int
}

// Compile time assert that Tokenizer implements the api interfaces.
var (
	_ api.Tokenizer          = &Tokenizer{}
	_ api.TokenizerWithSpans = &Tokenizer{}
	_ api.WordsTokenizer     = &Tokenizer{}
	_ api.SequenceTemplate   = &Tokenizer{}
)

// TokenizerFile is the name of the tokenizer definition in a repository.
const TokenizerFile = "tokenizer.json"

// New creates a HuggingFace tokenizer from the tokenizer.json file.
// It implements a tokenizers.TokenizerConstructor function signature.
func New(config *api.Config, repo *hub.Repo) (api.Tokenizer, error) {
	if !repo.HasFile(TokenizerFile) {
		return nil, errors.Errorf("%q file not found in repo %s", TokenizerFile, repo)
	}
	tokenizerFile, err := repo.DownloadFile(TokenizerFile)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't download %q file", TokenizerFile)
	}
	return NewFromFile(config, tokenizerFile)
}

// NewFromFile creates a HuggingFace tokenizer from a local tokenizer.json file path.
func NewFromFile(config *api.Config, filePath string) (*Tokenizer, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer.json file %q", filePath)
	}
	return NewFromContent(config, content)
}

// NewFromContent creates a HuggingFace tokenizer from tokenizer.json content.
// The config (from tokenizer_config.json) is optional and can be nil.
func NewFromContent(config *api.Config, content []byte) (*Tokenizer, error) {
	var tj TokenizerJSON
	if err := json.Unmarshal(content, &tj); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer.json")
	}
	switch tj.Model.Type {
	case "WordPiece", "BPE", "Unigram", "":
	default:
		return nil, errors.Errorf("unsupported tokenizer model type %q", tj.Model.Type)
	}

	t := &Tokenizer{
		config:      config,
		tokenizer:   &tj,
		idToToken:   make(map[int]string),
		addedTokens: make(map[string]int),
		unkID:       -1,
		padID:       -1,
		bosID:       -1,
		eosID:       -1,
		clsID:       -1,
		sepID:       -1,
		maskID:      -1,
	}
	for token, id := range tj.Model.Vocab {
		t.idToToken[id] = token
	}
	for _, at := range tj.AddedTokens {
		t.addedTokens[at.Content] = at.ID
		t.idToToken[at.ID] = at.Content
	}
	if tj.Model.Type == "BPE" {
		t.mergeRanks = make(map[string]int, len(tj.Model.Merges))
		for i, merge := range tj.Model.Merges {
			t.mergeRanks[merge] = i
		}
	}
	t.resolveSpecialTokens()
	return t, nil
}

// TokenToID converts a token string to its ID.
func (t *Tokenizer) TokenToID(token string) (int, bool) {
	if id, ok := t.addedTokens[token]; ok {
		return id, true
	}
	id, ok := t.tokenizer.Model.Vocab[token]
	return id, ok
}

// IDToToken converts a token ID to its string.
func (t *Tokenizer) IDToToken(id int) (string, bool) {
	token, ok := t.idToToken[id]
	return token, ok
}

// resolveSpecialTokens maps special tokens to their IDs: first from the model's unk_token,
// then from the added tokens and finally from the tokenizer_config.json, if one was given.
func (t *Tokenizer) resolveSpecialTokens() {
	model := &t.tokenizer.Model
	if model.UnkToken != "" {
		if id, ok := model.Vocab[model.UnkToken]; ok {
			t.unkID = id
		}
	} else if model.UnkID != nil {
		t.unkID = *model.UnkID
	}

	for _, at := range t.tokenizer.AddedTokens {
		if !at.Special {
			continue
		}
		switch at.Content {
		case "[UNK]", "<unk>":
			t.unkID = at.ID
		case "[PAD]", "<pad>":
			t.padID = at.ID
		case "[CLS]", "<s>":
			t.clsID = at.ID
		case "[SEP]", "</s>":
			t.sepID = at.ID
		case "[MASK]", "<mask>":
			t.maskID = at.ID
		}
		if t.config != nil {
			if at.Content == t.config.BosToken {
				t.bosID = at.ID
			}
			if at.Content == t.config.EosToken {
				t.eosID = at.ID
			}
		}
	}

	if t.config == nil {
		return
	}
	for _, fallback := range []struct {
		id    *int
		token string
	}{
		{&t.unkID, t.config.UnkToken},
		{&t.padID, t.config.PadToken},
		{&t.clsID, t.config.ClsToken},
		{&t.sepID, t.config.SepToken},
		{&t.maskID, t.config.MaskToken},
		{&t.bosID, t.config.BosToken},
		{&t.eosID, t.config.EosToken},
	} {
		if *fallback.id != -1 || fallback.token == "" {
			continue
		}
		if id, ok := t.TokenToID(fallback.token); ok {
			*fallback.id = id
		}
	}
}

// SpecialTokenID returns the ID for a given special token.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	var candidates []int
	switch token {
	case api.TokUnknown:
		candidates = []int{t.unkID}
	case api.TokPad:
		candidates = []int{t.padID}
	case api.TokBeginningOfSentence:
		// Falls back to CLS for BERT-style models.
		candidates = []int{t.bosID, t.clsID}
	case api.TokEndOfSentence:
		// Falls back to SEP for BERT-style models.
		candidates = []int{t.eosID, t.sepID}
	case api.TokMask:
		candidates = []int{t.maskID}
	case api.TokClassification:
		candidates = []int{t.clsID}
	}
	for _, id := range candidates {
		if id >= 0 {
			return id, nil
		}
	}
	return 0, errors.Errorf("special token %s not found", token)
}

// SingleSequenceTemplate returns the special tokens the post-processor of the tokenizer.json
// wraps a single sequence with. If there is no (known) post-processor, it returns
// BOS/EOS (or CLS/SEP) when defined.
//
// It implements api.SequenceTemplate.
func (t *Tokenizer) SingleSequenceTemplate() (prefix, suffix []int) {
	if pp := t.tokenizer.PostProcessor; pp != nil {
		if prefix, suffix, ok := t.postProcessorTemplate(pp); ok {
			return prefix, suffix
		}
	}
	if id, err := t.SpecialTokenID(api.TokBeginningOfSentence); err == nil {
		prefix = []int{id}
	}
	if id, err := t.SpecialTokenID(api.TokEndOfSentence); err == nil {
		suffix = []int{id}
	}
	return
}

func (t *Tokenizer) postProcessorTemplate(pp *PostProcessor) (prefix, suffix []int, ok bool) {
	switch pp.Type {
	case "BertProcessing", "RobertaProcessing":
		if pp.Cls == nil || pp.Sep == nil {
			return nil, nil, false
		}
		return []int{pp.Cls.ID}, []int{pp.Sep.ID}, true
	case "TemplateProcessing":
		seenSequence := false
		for _, item := range pp.Single {
			if item.Sequence != nil {
				seenSequence = true
				continue
			}
			if item.SpecialToken == nil {
				continue
			}
			special, found := pp.SpecialTokens[item.SpecialToken.ID]
			if !found {
				return nil, nil, false
			}
			if seenSequence {
				suffix = append(suffix, special.IDs...)
			} else {
				prefix = append(prefix, special.IDs...)
			}
		}
		return prefix, suffix, true
	case "Sequence":
		for ii := range pp.Processors {
			if prefix, suffix, ok := t.postProcessorTemplate(&pp.Processors[ii]); ok {
				return prefix, suffix, true
			}
		}
	}
	return nil, nil, false
}

// VocabSize returns the size of the vocabulary, including added tokens not in the model vocabulary.
func (t *Tokenizer) VocabSize() int {
	return len(t.idToToken)
}

// GetVocab returns the full vocabulary mapping.
func (t *Tokenizer) GetVocab() map[string]int {
	vocab := make(map[string]int, len(t.idToToken))
	for k, v := range t.tokenizer.Model.Vocab {
		vocab[k] = v
	}
	for _, at := range t.tokenizer.AddedTokens {
		vocab[at.Content] = at.ID
	}
	return vocab
}

// GetTokenizerType returns the model type (WordPiece, BPE, Unigram).
func (t *Tokenizer) GetTokenizerType() string {
	return t.tokenizer.Model.Type
}

// AddedTokensList returns the list of added tokens sorted by ID.
func (t *Tokenizer) AddedTokensList() []AddedToken {
	result := make([]AddedToken, len(t.tokenizer.AddedTokens))
	copy(result, t.tokenizer.AddedTokens)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
