package tagset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conllNames = []string{"O", "B-PER", "I-PER", "B-ORG", "I-ORG", "B-LOC", "I-LOC", "B-MISC", "I-MISC"}

func TestFromNames(t *testing.T) {
	v, err := FromNames(conllNames)
	require.NoError(t, err)
	assert.Equal(t, len(conllNames), v.Len())
	assert.Equal(t, conllNames, v.Names())

	id, err := v.ID("B-LOC")
	require.NoError(t, err)
	assert.Equal(t, 5, id)
	name, found := v.Name(1)
	assert.True(t, found)
	assert.Equal(t, "B-PER", name)
	assert.True(t, v.Contains(8))
	assert.False(t, v.Contains(9))

	_, err = FromNames([]string{"O", "B-PER", "O"})
	require.Error(t, err)
}

func TestUnknownTag(t *testing.T) {
	v, err := FromNames(conllNames)
	require.NoError(t, err)
	_, err = v.ID("B-DATE")
	var unknown *UnknownTagError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "B-DATE", unknown.Tag)
	assert.Contains(t, err.Error(), "B-DATE")
}

func TestNewValidation(t *testing.T) {
	_, err := New(map[string]int{"O": 0, "B-PER": -1})
	require.Error(t, err)
	_, err = New(map[string]int{"O": 0, "B-PER": 0})
	require.Error(t, err)

	v, err := New(map[string]int{"O": 0, "B-PER": 3, "I-PER": 7})
	require.NoError(t, err)
	assert.Equal(t, []string{"O", "B-PER", "I-PER"}, v.Names())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"plain map", `{"O": 0, "B-PER": 1, "I-PER": 2}`, []string{"O", "B-PER", "I-PER"}},
		{"label2id", `{"architectures": ["BertForTokenClassification"], "label2id": {"O": 0, "B-LOC": 1}, "hidden_size": 768}`,
			[]string{"O", "B-LOC"}},
		{"id2label", `{"id2label": {"0": "O", "1": "B-MISC"}}`, []string{"O", "B-MISC"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse([]byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Names())
		})
	}

	for _, content := range []string{`[1, 2]`, `{}`, `{"O": "zero"}`, `{"id2label": {"x": "O"}}`} {
		_, err := Parse([]byte(content))
		assert.Error(t, err, "content %s", content)
	}
}

func TestLoad(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(filePath, []byte(`{"label2id": {"O": 0, "B-ORG": 1}}`), 0o644))
	v, err := Load(filePath)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
