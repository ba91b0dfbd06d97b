// Package tagset holds the vocabulary of tags (labels) of a token classification task: the
// immutable mapping between tag names (e.g. "B-PER") and their integer ids.
package tagset

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/pkg/errors"
)

// Vocabulary maps tag names to ids and back. It is immutable after construction, so it's safe
// for concurrent use.
type Vocabulary struct {
	ids   map[string]int
	names map[int]string
}

// UnknownTagError is returned when looking up a tag that is not in the vocabulary.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag %q", e.Tag)
}

// New creates a Vocabulary from a tag to id mapping. Ids must be non-negative and unique.
func New(tagToID map[string]int) (*Vocabulary, error) {
	v := &Vocabulary{
		ids:   make(map[string]int, len(tagToID)),
		names: make(map[int]string, len(tagToID)),
	}
	for _, tag := range slices.Sorted(maps.Keys(tagToID)) {
		id := tagToID[tag]
		if id < 0 {
			return nil, errors.Errorf("tag %q has negative id %d", tag, id)
		}
		if other, found := v.names[id]; found {
			return nil, errors.Errorf("tags %q and %q have the same id %d", other, tag, id)
		}
		v.ids[tag] = id
		v.names[id] = tag
	}
	return v, nil
}

// FromNames creates a Vocabulary where each tag's id is its position in names, as in the
// ClassLabel feature of HuggingFace datasets. Names must be unique.
func FromNames(names []string) (*Vocabulary, error) {
	tagToID := make(map[string]int, len(names))
	for id, name := range names {
		if _, found := tagToID[name]; found {
			return nil, errors.Errorf("tag %q appears more than once", name)
		}
		tagToID[name] = id
	}
	return New(tagToID)
}

// modelConfig is the part of a HuggingFace model's config.json holding the labels.
type modelConfig struct {
	Label2ID map[string]int    `json:"label2id"`
	ID2Label map[string]string `json:"id2label"`
}

// Load reads a Vocabulary from a JSON file. It accepts either a plain object mapping tags to ids,
// or a HuggingFace model "config.json" with "label2id" (or "id2label").
func Load(filePath string) (*Vocabulary, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tags from %q", filePath)
	}
	v, err := Parse(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading tags from %q", filePath)
	}
	return v, nil
}

// Parse is like Load, but takes the JSON content.
func Parse(content []byte) (*Vocabulary, error) {
	var config modelConfig
	if err := json.Unmarshal(content, &config); err != nil {
		return nil, errors.Wrap(err, "failed to parse tags JSON")
	}
	switch {
	case len(config.Label2ID) > 0:
		return New(config.Label2ID)
	case len(config.ID2Label) > 0:
		tagToID := make(map[string]int, len(config.ID2Label))
		for key, tag := range config.ID2Label {
			id, err := strconv.Atoi(key)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid id %q in id2label", key)
			}
			tagToID[tag] = id
		}
		return New(tagToID)
	}

	var tagToID map[string]int
	if err := json.Unmarshal(content, &tagToID); err != nil {
		return nil, errors.Wrap(err, "tags JSON must be an object mapping tags to ids, or a model config with \"label2id\"")
	}
	if len(tagToID) == 0 {
		return nil, errors.New("no tags found")
	}
	return New(tagToID)
}

// ID returns the id of the tag, or an *UnknownTagError.
func (v *Vocabulary) ID(tag string) (int, error) {
	id, found := v.ids[tag]
	if !found {
		return 0, &UnknownTagError{Tag: tag}
	}
	return id, nil
}

// Name returns the tag with the given id.
func (v *Vocabulary) Name(id int) (string, bool) {
	name, found := v.names[id]
	return name, found
}

// Contains returns whether id belongs to a tag of the vocabulary.
func (v *Vocabulary) Contains(id int) bool {
	_, found := v.names[id]
	return found
}

// Len returns the number of tags.
func (v *Vocabulary) Len() int {
	return len(v.ids)
}

// Names returns the tags sorted by id.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.names))
	for _, id := range slices.Sorted(maps.Keys(v.names)) {
		names = append(names, v.names[id])
	}
	return names
}

// String implements fmt.Stringer.
func (v *Vocabulary) String() string {
	return fmt.Sprintf("tagset.Vocabulary%v", v.Names())
}
