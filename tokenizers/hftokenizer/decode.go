package hftokenizer

import (
	"strconv"
	"strings"
)

// Byte-level BPE encoding/decoding.
// GPT-2 uses a specific byte-to-unicode mapping, so that every byte is a printable rune.
var (
	byteToUnicode [256]rune
	unicodeToByte = make(map[rune]byte, 256)
)

func init() {
	n := 0
	for b := 0; b < 256; b++ {
		if (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF) {
			byteToUnicode[b] = rune(b)
		} else {
			byteToUnicode[b] = rune(256 + n)
			n++
		}
		unicodeToByte[byteToUnicode[b]] = byte(b)
	}
}

// Decode converts a sequence of token IDs back to text. Unknown ids are skipped.
func (t *Tokenizer) Decode(ids []int) string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if token, ok := t.idToToken[id]; ok {
			tokens = append(tokens, token)
		}
	}
	if t.tokenizer.Decoder == nil {
		return t.wordPieceDecode(tokens, t.tokenizer.Model.ContinuingSubwordPrefix)
	}
	return t.decodeTokens(tokens, t.tokenizer.Decoder)
}

func (t *Tokenizer) decodeTokens(tokens []string, d *Decoder) string {
	switch d.Type {
	case "WordPiece":
		return t.wordPieceDecode(tokens, d.Prefix)
	case "ByteLevel":
		return byteLevelDecode(strings.Join(tokens, ""))
	case "Metaspace":
		return strings.TrimPrefix(strings.ReplaceAll(strings.Join(tokens, ""), metaspace, " "), " ")
	case "BPEDecoder":
		return t.bpeDecode(tokens, d.Suffix)
	case "Sequence":
		for ii := range d.Decoders {
			tokens = decodeStep(tokens, &d.Decoders[ii])
		}
		return strings.Join(tokens, "")
	default:
		return t.wordPieceDecode(tokens, t.tokenizer.Model.ContinuingSubwordPrefix)
	}
}

// decodeStep applies one decoder of a "Sequence" decoder, token by token.
func decodeStep(tokens []string, d *Decoder) []string {
	switch d.Type {
	case "Replace":
		if d.Pattern == nil || d.Pattern.String == "" {
			return tokens
		}
		result := make([]string, len(tokens))
		for ii, tok := range tokens {
			result[ii] = strings.ReplaceAll(tok, d.Pattern.String, d.Content)
		}
		return result
	case "ByteFallback":
		return byteFallbackDecode(tokens)
	case "Fuse":
		return []string{strings.Join(tokens, "")}
	case "Strip":
		if len(tokens) > 0 && d.Content != "" {
			tokens[0] = strings.TrimPrefix(tokens[0], d.Content)
		}
		return tokens
	case "ByteLevel":
		return []string{byteLevelDecode(strings.Join(tokens, ""))}
	default:
		return tokens
	}
}

// byteFallbackDecode converts runs of "<0xNN>" tokens back to the (UTF-8) text they encode.
func byteFallbackDecode(tokens []string) []string {
	var (
		result  []string
		pending []byte
	)
	for _, tok := range tokens {
		if len(tok) == 6 && strings.HasPrefix(tok, "<0x") && strings.HasSuffix(tok, ">") {
			if b, err := strconv.ParseUint(tok[3:5], 16, 8); err == nil {
				pending = append(pending, byte(b))
				continue
			}
		}
		if len(pending) > 0 {
			result = append(result, string(pending))
			pending = nil
		}
		result = append(result, tok)
	}
	if len(pending) > 0 {
		result = append(result, string(pending))
	}
	return result
}

func (t *Tokenizer) wordPieceDecode(tokens []string, prefix string) string {
	if prefix == "" {
		prefix = "##"
	}
	var result strings.Builder
	for i, token := range tokens {
		if strings.HasPrefix(token, prefix) {
			result.WriteString(strings.TrimPrefix(token, prefix))
			continue
		}
		if i > 0 {
			result.WriteString(" ")
		}
		result.WriteString(token)
	}
	return result.String()
}

func (t *Tokenizer) bpeDecode(tokens []string, suffix string) string {
	if suffix == "" {
		suffix = t.tokenizer.Model.EndOfWordSuffix
	}
	var result strings.Builder
	for i, token := range tokens {
		if suffix != "" && strings.HasSuffix(token, suffix) {
			result.WriteString(strings.TrimSuffix(token, suffix))
			if i < len(tokens)-1 {
				result.WriteString(" ")
			}
			continue
		}
		result.WriteString(token)
	}
	return result.String()
}

func byteLevelDecode(text string) string {
	result := make([]byte, 0, len(text))
	for _, r := range text {
		if b, ok := unicodeToByte[r]; ok {
			result = append(result, b)
		} else {
			// Fallback for characters not in the mapping
			result = append(result, []byte(string(r))...)
		}
	}
	return string(result)
}
