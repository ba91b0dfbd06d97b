// Package tokenizers creates tokenizers from HuggingFace repositories, and provides FixedLength to
// encode pre-split words into fixed-length model inputs.
//
// Given a HuggingFace repository (see hub.New to create one), New uses its "tokenizer_config.json"
// to pick the implementation: "tokenizer.json" (hftokenizer), "tokenizer.model" (sentencepiece)
// or "vocab.txt" (wordpiece).
package tokenizers

import (
	"path/filepath"
	"strings"

	"github.com/gomlx/tokenclass/hub"
	"github.com/gomlx/tokenclass/internal/files"
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/gomlx/tokenclass/tokenizers/hftokenizer"
	"github.com/gomlx/tokenclass/tokenizers/sentencepiece"
	"github.com/gomlx/tokenclass/tokenizers/wordpiece"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Tokenizer converts text to "tokens" (integer ids) and back.
type Tokenizer = api.Tokenizer

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken = api.SpecialToken

const (
	TokBeginningOfSentence = api.TokBeginningOfSentence
	TokEndOfSentence       = api.TokEndOfSentence
	TokUnknown             = api.TokUnknown
	TokPad                 = api.TokPad
	TokMask                = api.TokMask
	TokClassification      = api.TokClassification
	TokSpecialTokensCount  = api.TokSpecialTokensCount
)

// Config holds HuggingFace's tokenizer_config.json contents.
type Config = api.Config

// ConfigFile is the name of the tokenizer configuration in a repository.
const ConfigFile = "tokenizer_config.json"

// New creates a new tokenizer from the given HuggingFace repo (see hub.New).
//
// The constructor is picked by the "tokenizer_class" of "tokenizer_config.json" (the "Fast" suffix is
// ignored). For unknown classes, or if there is no config file, it falls back to whichever of
// "tokenizer.json", "tokenizer.model" or "vocab.txt" the repository has, in that order.
func New(repo *hub.Repo) (Tokenizer, error) {
	if err := repo.DownloadInfo(false); err != nil {
		return nil, err
	}
	var config *api.Config
	if repo.HasFile(ConfigFile) {
		var err error
		config, err = GetConfig(repo)
		if err != nil {
			return nil, err
		}
		className := strings.TrimSuffix(config.TokenizerClass, "Fast")
		if constructor, found := registerOfClasses[className]; found {
			return constructor(config, repo)
		}
		klog.V(1).Infof("%s: tokenizer class %q not registered, looking for tokenizer files", repo, config.TokenizerClass)
	}
	switch {
	case repo.HasFile(hftokenizer.TokenizerFile):
		return hftokenizer.New(config, repo)
	case repo.HasFile(sentencepiece.ModelFile):
		return sentencepiece.New(config, repo)
	case repo.HasFile(wordpiece.VocabFile):
		return wordpiece.New(config, repo)
	}
	return nil, errors.Errorf("repository %q has no known tokenizer file (%q, %q or %q)",
		repo, hftokenizer.TokenizerFile, sentencepiece.ModelFile, wordpiece.VocabFile)
}

// NewFromDir creates a tokenizer from the files of a local directory, for instance a model saved
// with `save_pretrained`. It looks for "tokenizer.json", "tokenizer.model" and "vocab.txt", in that
// order; "tokenizer_config.json" is used if present.
func NewFromDir(dir string) (Tokenizer, error) {
	dir, err := files.ReplaceTildeInDir(dir)
	if err != nil {
		return nil, err
	}
	var config *api.Config
	if configPath := filepath.Join(dir, ConfigFile); files.Exists(configPath) {
		config, err = api.ParseConfigFile(configPath)
		if err != nil {
			return nil, err
		}
	}
	if filePath := filepath.Join(dir, hftokenizer.TokenizerFile); files.Exists(filePath) {
		tok, err := hftokenizer.NewFromFile(config, filePath)
		if err != nil {
			return nil, err
		}
		return tok, nil
	}
	if filePath := filepath.Join(dir, sentencepiece.ModelFile); files.Exists(filePath) {
		tok, err := sentencepiece.NewFromFile(config, filePath)
		if err != nil {
			return nil, err
		}
		return tok, nil
	}
	if filePath := filepath.Join(dir, wordpiece.VocabFile); files.Exists(filePath) {
		tok, err := wordpiece.NewFromVocab(filePath)
		if err != nil {
			return nil, err
		}
		return tok, nil
	}
	return nil, errors.Errorf("directory %q has no known tokenizer file (%q, %q or %q)",
		dir, hftokenizer.TokenizerFile, sentencepiece.ModelFile, wordpiece.VocabFile)
}

// GetConfig returns the parsed "tokenizer_config.json" Config object for the repo.
func GetConfig(repo *hub.Repo) (*api.Config, error) {
	localConfigFile, err := repo.DownloadFile(ConfigFile)
	if err != nil {
		return nil, err
	}
	return api.ParseConfigFile(localConfigFile)
}

// TokenizerConstructor is used by Tokenizer implementations to provide implementations for different
// tokenizer classes.
type TokenizerConstructor func(config *api.Config, repo *hub.Repo) (api.Tokenizer, error)

// RegisterTokenizerClass registers the constructor for the tokenizer class name (without "Fast" suffix).
// It's not safe for concurrent use with New, call it during initialization.
func RegisterTokenizerClass(name string, constructor TokenizerConstructor) {
	registerOfClasses[name] = constructor
}

var registerOfClasses = make(map[string]TokenizerConstructor)

// newBertStyle uses tokenizer.json if available, and vocab.txt otherwise.
func newBertStyle(config *api.Config, repo *hub.Repo) (api.Tokenizer, error) {
	if repo.HasFile(hftokenizer.TokenizerFile) {
		return hftokenizer.New(config, repo)
	}
	return wordpiece.New(config, repo)
}

// newSentencePieceStyle uses tokenizer.model if available, and tokenizer.json otherwise.
func newSentencePieceStyle(config *api.Config, repo *hub.Repo) (api.Tokenizer, error) {
	if repo.HasFile(sentencepiece.ModelFile) {
		return sentencepiece.New(config, repo)
	}
	return hftokenizer.New(config, repo)
}

func init() {
	for _, className := range []string{"BertTokenizer", "DistilBertTokenizer", "ElectraTokenizer"} {
		RegisterTokenizerClass(className, newBertStyle)
	}
	for _, className := range []string{
		"RobertaTokenizer", "DebertaTokenizer", "DebertaV2Tokenizer", "XLMRobertaTokenizer",
		"CamembertTokenizer", "GPT2Tokenizer", "LongformerTokenizer", "PreTrainedTokenizer",
	} {
		RegisterTokenizerClass(className, hftokenizer.New)
	}
	for _, className := range []string{"GemmaTokenizer", "LlamaTokenizer", "T5Tokenizer"} {
		RegisterTokenizerClass(className, newSentencePieceStyle)
	}
}
