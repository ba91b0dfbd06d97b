// Package align converts a sentence given as words with one tag per word into fixed-length model
// inputs with one label per subtoken: the first subtoken of each word gets the word's tag id,
// every other position (continuation subtokens, special tokens and padding) gets
// tokenclass.Sentinel, which training losses ignore.
package align

import (
	"fmt"

	"github.com/gomlx/tokenclass"
	"github.com/gomlx/tokenclass/tagset"
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Encoder encodes pre-split words into exactly MaxLen positions, with special tokens, truncation and
// padding applied. tokenizers.FixedLength implements it.
type Encoder interface {
	EncodeWords(words []string) api.WordsEncoding
	MaxLen() int
}

// Strategy used to find the first subtoken of each word.
type Strategy int

const (
	// StrategyAuto uses StrategyWordIndex if the encoding has word indices, and StrategyOffsets otherwise.
	StrategyAuto Strategy = iota

	// StrategyWordIndex marks a position as a word start when its word index differs from the one
	// of the previous non-special position. The label is the tag of that word.
	StrategyWordIndex

	// StrategyOffsets marks a position as a word start when its offset within the word starts at 0
	// and is not empty. Labels are taken from the tags in order.
	//
	// Tokenizers that emit a subtoken starting at offset 0 in the middle of a word (or an empty
	// one at its start) make it miscount words.
	StrategyOffsets
)

var strategyNames = []string{"auto", "word_index", "offsets"}

// String implements fmt.Stringer.
func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy converts the name returned by Strategy.String back to the Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for ii, strategyName := range strategyNames {
		if name == strategyName {
			return Strategy(ii), nil
		}
	}
	return StrategyAuto, errors.Errorf("unknown alignment strategy %q, valid values are %q", name, strategyNames)
}

// Status of an aligned example.
type Status int

const (
	// StatusAligned means every word got its label.
	StatusAligned Status = iota

	// StatusTruncated means some trailing words were truncated away by the maximum length.
	// Their labels are lost, but it's not an error.
	StatusTruncated

	// StatusFailed means the example has an unknown tag, or more word starts than tags.
	StatusFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusAligned:
		return "aligned"
	case StatusTruncated:
		return "truncated"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// UnknownTagError is returned when a tag of the sentence is not in the tag vocabulary.
type UnknownTagError struct {
	Tag      string
	Sentence []string
	Err      *tagset.UnknownTagError
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag %q in sentence %q", e.Tag, e.Sentence)
}

// Unwrap returns the underlying *tagset.UnknownTagError.
func (e *UnknownTagError) Unwrap() error {
	return e.Err
}

// OverflowError is returned when the encoding has more word starts than there are tags, which
// happens when there are fewer tags than words, or the tokenizer's offsets are inconsistent with
// StrategyOffsets.
type OverflowError struct {
	Sentence []string
	Words    int
	Tags     int
}

// MissingWordsError is returned when some words of a sentence that was not truncated have no
// first subtoken, typically words the tokenizer normalizes away (control characters, for instance).
type MissingWordsError struct {
	Sentence []string

	// Missing holds the indices of the unlabelled words. It is only known with StrategyWordIndex.
	Missing []int

	Words, Labelled int
}

func (e *MissingWordsError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("words %v produced no tokens (%d of %d words labelled) in sentence %q",
			e.Missing, e.Labelled, e.Words, e.Sentence)
	}
	return fmt.Sprintf("only %d of %d words labelled, without truncation, in sentence %q",
		e.Labelled, e.Words, e.Sentence)
}

// ErrNoWordIDs is returned when StrategyWordIndex is forced but the encoder reports no word indices.
var ErrNoWordIDs = errors.New("encoder reports no word indices, required by strategy word_index")

func (e *OverflowError) Error() string {
	return fmt.Sprintf("more word starts than tags (%d words, %d tags) in sentence %q", e.Words, e.Tags, e.Sentence)
}

// Example is an aligned sentence: the model inputs and the label of each position.
// All slices have MaxLen elements.
type Example struct {
	InputIDs      []int
	AttentionMask []int
	Offsets       []api.TokenSpan
	WordIDs       []int

	// Labels holds a tag id for the first subtoken of each word, and tokenclass.Sentinel elsewhere.
	Labels []int

	Status Status

	// Labelled is the number of positions with a tag id.
	Labelled int
}

// Aligner aligns word tags to subtokens. It is immutable and safe for concurrent use if its
// encoder is.
type Aligner struct {
	encoder  Encoder
	tags     *tagset.Vocabulary
	strategy Strategy
}

// Option configures an Aligner.
type Option func(a *Aligner)

// WithStrategy sets the strategy used to find the first subtoken of each word. Default is StrategyAuto.
func WithStrategy(strategy Strategy) Option {
	return func(a *Aligner) {
		a.strategy = strategy
	}
}

// New creates an Aligner that encodes sentences with encoder and maps tags with the given vocabulary.
func New(encoder Encoder, tags *tagset.Vocabulary, options ...Option) (*Aligner, error) {
	if encoder == nil {
		return nil, errors.New("align.New requires an encoder")
	}
	if tags == nil || tags.Len() == 0 {
		return nil, errors.New("align.New requires a non-empty tag vocabulary")
	}
	if encoder.MaxLen() <= 0 {
		return nil, errors.Errorf("encoder has invalid maximum length %d", encoder.MaxLen())
	}
	a := &Aligner{encoder: encoder, tags: tags}
	for _, option := range options {
		option(a)
	}
	if a.strategy < StrategyAuto || a.strategy > StrategyOffsets {
		return nil, errors.Errorf("invalid alignment strategy %s", a.strategy)
	}
	return a, nil
}

// MaxLen returns the length of every aligned example.
func (a *Aligner) MaxLen() int {
	return a.encoder.MaxLen()
}

// Tags returns the tag vocabulary.
func (a *Aligner) Tags() *tagset.Vocabulary {
	return a.tags
}

// Align encodes the words and labels the first subtoken of each word with the id of its tag.
//
// An example is always returned, even with an error. If a tag is unknown (*UnknownTagError), all
// labels are tokenclass.Sentinel. If there are more word starts than tags (*OverflowError), the
// positions past the last tag keep the sentinel. Words left without a label when the encoder
// did not truncate (*MissingWordsError) and a forced StrategyWordIndex on an encoder without
// word indices (ErrNoWordIDs) also fail. In all these cases the Status is StatusFailed and the
// error is logged.
//
// StatusTruncated is only reported when the encoder dropped tokens to fit MaxLen.
func (a *Aligner) Align(words, tags []string) (*Example, error) {
	enc := a.encoder.EncodeWords(words)
	example := &Example{
		InputIDs:      enc.IDs,
		AttentionMask: enc.AttentionMask,
		Offsets:       enc.Offsets,
		WordIDs:       enc.WordIDs,
		Labels:        make([]int, enc.Len()),
	}
	for ii := range example.Labels {
		example.Labels[ii] = tokenclass.Sentinel
	}

	tagIDs := make([]int, len(tags))
	for ii, tag := range tags {
		id, err := a.tags.ID(tag)
		if err != nil {
			var unknown *tagset.UnknownTagError
			_ = errors.As(err, &unknown)
			example.Status = StatusFailed
			alignErr := &UnknownTagError{Tag: tag, Sentence: words, Err: unknown}
			klog.Warningf("skipping labels: %v", alignErr)
			return example, alignErr
		}
		tagIDs[ii] = id
	}

	useWordIndex := a.useWordIndex(enc)
	if useWordIndex && !hasWordIDs(enc) {
		example.Status = StatusFailed
		err := errors.WithMessagef(ErrNoWordIDs, "sentence %q", words)
		klog.Warningf("skipping labels: %v", err)
		return example, err
	}
	var err error
	if useWordIndex {
		err = labelByWordIndex(example, tagIDs)
	} else {
		err = labelByOffsets(example, tagIDs)
	}
	switch {
	case err != nil:
		example.Status = StatusFailed
		var overflow *OverflowError
		if errors.As(err, &overflow) {
			overflow.Sentence = words
			overflow.Words = len(words)
		}
		klog.Warningf("labels incomplete: %v", err)
		return example, err
	case example.Labelled < len(words):
		var missing []int
		if useWordIndex {
			missing = missingWords(example.WordIDs, len(words), enc.Truncated)
		}
		if enc.Truncated && len(missing) == 0 {
			example.Status = StatusTruncated
			klog.V(2).Infof("sentence truncated to %d of %d words: %q", example.Labelled, len(words), words)
			break
		}
		example.Status = StatusFailed
		missingErr := &MissingWordsError{Sentence: words, Missing: missing, Words: len(words), Labelled: example.Labelled}
		klog.Warningf("labels incomplete: %v", missingErr)
		return example, missingErr
	default:
		example.Status = StatusAligned
	}
	return example, nil
}

func (a *Aligner) useWordIndex(enc api.WordsEncoding) bool {
	switch a.strategy {
	case StrategyWordIndex:
		return true
	case StrategyOffsets:
		return false
	default:
		return hasWordIDs(enc)
	}
}

func hasWordIDs(enc api.WordsEncoding) bool {
	return enc.WordIDs != nil && len(enc.WordIDs) == enc.Len()
}

// missingWords returns the indices of the words that appear in no position of wordIDs. If the
// encoding was truncated, words past the last encoded one are not reported.
func missingWords(wordIDs []int, numWords int, truncated bool) []int {
	seen := make([]bool, numWords)
	last := -1
	for _, wordID := range wordIDs {
		if wordID >= 0 && wordID < numWords {
			seen[wordID] = true
			last = max(last, wordID)
		}
	}
	if truncated {
		seen = seen[:last+1]
	}
	var missing []int
	for ii, found := range seen {
		if !found {
			missing = append(missing, ii)
		}
	}
	return missing
}

// labelByWordIndex labels the first position of each word index.
func labelByWordIndex(example *Example, tagIDs []int) error {
	previous := api.NoWord
	for pos, wordID := range example.WordIDs {
		if wordID == api.NoWord {
			continue
		}
		if wordID != previous {
			if wordID >= len(tagIDs) {
				return &OverflowError{Tags: len(tagIDs)}
			}
			example.Labels[pos] = tagIDs[wordID]
			example.Labelled++
		}
		previous = wordID
	}
	return nil
}

// labelByOffsets labels every position whose offset starts at 0 and is not empty, using the tags in order.
func labelByOffsets(example *Example, tagIDs []int) error {
	next := 0
	for pos, span := range example.Offsets {
		if span.Start != 0 || span.End == 0 {
			continue
		}
		if next >= len(tagIDs) {
			return &OverflowError{Tags: len(tagIDs)}
		}
		example.Labels[pos] = tagIDs[next]
		example.Labelled++
		next++
	}
	return nil
}
