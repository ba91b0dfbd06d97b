// Package datasets reads token classification datasets (CoNLL text files and HuggingFace-style
// parquet files) into Examples, groups them into batches for package collate, and writes the
// encoded batches back to parquet.
package datasets

import (
	"iter"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/gomlx/tokenclass/collate"
	"github.com/pkg/errors"
)

// Example is one sentence: its words and one tag per word.
type Example struct {
	Tokens []string
	Tags   []string
}

// BatchOf converts the examples to a collate.Batch. The slices are shared, not copied.
func BatchOf(examples []Example) collate.Batch {
	batch := collate.Batch{
		Tokens: make([][]string, len(examples)),
		Tags:   make([][]string, len(examples)),
	}
	for ii, example := range examples {
		batch.Tokens[ii] = example.Tokens
		batch.Tags[ii] = example.Tags
	}
	return batch
}

// Batches yields consecutive batches of up to size examples. The last batch may be shorter.
// A size <= 0 yields all examples in one batch.
func Batches(examples []Example, size int) iter.Seq[collate.Batch] {
	if size <= 0 {
		size = max(len(examples), 1)
	}
	return func(yield func(collate.Batch) bool) {
		for start := 0; start < len(examples); start += size {
			end := min(start+size, len(examples))
			if !yield(BatchOf(examples[start:end])) {
				return
			}
		}
	}
}

// mapFile memory-maps the file read-only. The returned function unmaps and closes it.
// Empty files return empty contents.
func mapFile(filePath string) (contents []byte, closeFn func() error, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %q", filePath)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "failed to stat %q", filePath)
	}
	if info.Size() == 0 {
		return nil, f.Close, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "failed to memory-map %q", filePath)
	}
	closeFn = func() error {
		err := m.Unmap()
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		return err
	}
	return m, closeFn, nil
}
