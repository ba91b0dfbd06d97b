package api

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// AddedTokenDecoder is an entry of the "added_tokens_decoder" map in tokenizer_config.json.
type AddedTokenDecoder struct {
	Content    string `json:"content"`
	Lstrip     bool   `json:"lstrip"`
	Normalized bool   `json:"normalized"`
	Rstrip     bool   `json:"rstrip"`
	SingleWord bool   `json:"single_word"`
	Special    bool   `json:"special"`
}

// Config struct to hold HuggingFace's tokenizer_config.json contents.
// There is no formal schema for this file, these are the fields used when encoding
// token classification inputs.
//
// The extra field ConfigFile holds the path to the file with the full config.
type Config struct {
	ConfigFile     string
	TokenizerClass string `json:"tokenizer_class"`

	ModelMaxLength float64 `json:"model_max_length"`
	MaxLength      float64 `json:"max_length"`

	ClsToken  string `json:"cls_token"`
	UnkToken  string `json:"unk_token"`
	SepToken  string `json:"sep_token"`
	MaskToken string `json:"mask_token"`
	BosToken  string `json:"bos_token"`
	EosToken  string `json:"eos_token"`
	PadToken  string `json:"pad_token"`

	AddBosToken        bool                      `json:"add_bos_token"`
	AddEosToken        bool                      `json:"add_eos_token"`
	AddPrefixSpace     bool                      `json:"add_prefix_space"`
	AddedTokensDecoder map[int]AddedTokenDecoder `json:"added_tokens_decoder"`

	DoLowerCase    bool   `json:"do_lower_case"`
	NameOrPath     string `json:"name_or_path"`
	TruncationSide string `json:"truncation_side"`
	PaddingSide    string `json:"padding_side"`
}

// ParseConfigFile parses the given file (holding a tokenizer_config.json file) into a Config structure.
func ParseConfigFile(filePath string) (*Config, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %q", filePath)
	}
	config, err := ParseConfigContent(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "read from file %q", filePath)
	}
	config.ConfigFile = filePath
	return config, nil
}

// ParseConfigContent parses the given json content (of a tokenizer_config.json file) into a Config structure.
//
// Special tokens may be given either as plain strings or as objects with a "content" field.
func ParseConfigContent(jsonContent []byte) (*Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonContent, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer_config json content")
	}
	config := &Config{}
	for key, target := range map[string]*string{
		"cls_token": &config.ClsToken, "unk_token": &config.UnkToken, "sep_token": &config.SepToken,
		"mask_token": &config.MaskToken, "bos_token": &config.BosToken, "eos_token": &config.EosToken,
		"pad_token": &config.PadToken,
	} {
		if value, found := raw[key]; found {
			delete(raw, key)
			content, err := specialTokenContent(value)
			if err != nil {
				return nil, errors.WithMessagef(err, "field %q", key)
			}
			*target = content
		}
	}
	rest, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to re-encode tokenizer_config")
	}
	if err = json.Unmarshal(rest, config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer_config json content")
	}
	return config, nil
}

func specialTokenContent(value json.RawMessage) (string, error) {
	var content string
	if err := json.Unmarshal(value, &content); err == nil {
		return content, nil
	}
	var decoder AddedTokenDecoder
	if err := json.Unmarshal(value, &decoder); err != nil {
		return "", errors.Wrapf(err, "special token is neither a string nor an object")
	}
	return decoder.Content, nil
}
