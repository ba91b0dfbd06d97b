package datasets

import (
	"bytes"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/tokenclass/collate"
	"github.com/gomlx/tokenclass/tagset"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// TokensColumn and TagsColumn are the column names used by HuggingFace NER datasets.
	TokensColumn = "tokens"
	TagsColumn   = "ner_tags"

	readBatchSize = 256
)

// taggedRow is the row layout of HuggingFace NER datasets: tags are ClassLabel ids.
type taggedRow struct {
	Tokens []string `parquet:"tokens,list"`
	Tags   []int64  `parquet:"ner_tags,list"`
}

// EncodedRow is one encoded example, as written by WriteEncodedParquet.
type EncodedRow struct {
	InputIDs      []int64 `parquet:"input_ids,list"`
	AttentionMask []int64 `parquet:"attention_mask,list"`
	Labels        []int64 `parquet:"labels,list"`
	Status        string  `parquet:"status"`
}

// ReadParquet reads a parquet file with "tokens" and "ner_tags" columns, converting the tag ids
// to names with the given vocabulary.
func ReadParquet(filePath string, tags *tagset.Vocabulary) ([]Example, error) {
	contents, closeFn, err := mapFile(filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()

	reader := bytes.NewReader(contents)
	file, err := parquet.OpenFile(reader, reader.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open parquet file %q", filePath)
	}
	for _, column := range []string{TokensColumn, TagsColumn} {
		if !hasField(file.Schema(), column) {
			return nil, errors.Errorf("parquet file %q has no column %q", filePath, column)
		}
	}

	rowsReader := parquet.NewGenericReader[taggedRow](reader)
	defer func() { _ = rowsReader.Close() }()
	examples := make([]Example, 0, file.NumRows())
	rows := make([]taggedRow, readBatchSize)
	for {
		n, readErr := rowsReader.Read(rows)
		for _, row := range rows[:n] {
			example, err := exampleFromRow(row, tags)
			if err != nil {
				return nil, errors.WithMessagef(err, "row #%d of %q", len(examples), filePath)
			}
			examples = append(examples, example)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, errors.Wrapf(readErr, "failed reading rows of %q", filePath)
		}
	}
	klog.V(1).Infof("read %d examples from %q", len(examples), filePath)
	return examples, nil
}

func hasField(schema *parquet.Schema, name string) bool {
	return slices.ContainsFunc(schema.Fields(), func(field parquet.Field) bool {
		return field.Name() == name
	})
}

// exampleFromRow copies the row, since the reader reuses its buffers.
func exampleFromRow(row taggedRow, tags *tagset.Vocabulary) (Example, error) {
	if len(row.Tokens) != len(row.Tags) {
		return Example{}, errors.Errorf("%d tokens but %d tags", len(row.Tokens), len(row.Tags))
	}
	example := Example{
		Tokens: make([]string, len(row.Tokens)),
		Tags:   make([]string, len(row.Tags)),
	}
	for ii, token := range row.Tokens {
		example.Tokens[ii] = strings.Clone(token)
	}
	for ii, id := range row.Tags {
		name, found := tags.Name(int(id))
		if !found {
			return Example{}, errors.Errorf("tag id %d not in the tag vocabulary", id)
		}
		example.Tags[ii] = name
	}
	return example, nil
}

// WriteParquet writes the examples with the layout read by ReadParquet.
func WriteParquet(filePath string, examples []Example, tags *tagset.Vocabulary) error {
	rows := make([]taggedRow, len(examples))
	for ii, example := range examples {
		rows[ii].Tokens = example.Tokens
		rows[ii].Tags = make([]int64, len(example.Tags))
		for jj, tag := range example.Tags {
			id, err := tags.ID(tag)
			if err != nil {
				return errors.WithMessagef(err, "example #%d", ii)
			}
			rows[ii].Tags[jj] = int64(id)
		}
	}
	return writeRows(filePath, rows)
}

// WriteEncodedParquet writes the rows of all collated batches, in order, to filePath.
func WriteEncodedParquet(filePath string, batches ...*collate.Collated) error {
	var rows []EncodedRow
	for _, batch := range batches {
		for ii := range batch.Len() {
			rows = append(rows, EncodedRow{
				InputIDs:      toInt64(batch.InputIDs[ii]),
				AttentionMask: toInt64(batch.AttentionMask[ii]),
				Labels:        toInt64(batch.Labels[ii]),
				Status:        batch.Results[ii].String(),
			})
		}
	}
	return writeRows(filePath, rows)
}

// ReadEncodedParquet reads the rows written by WriteEncodedParquet.
func ReadEncodedParquet(filePath string) ([]EncodedRow, error) {
	rows, err := parquet.ReadFile[EncodedRow](filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read encoded rows from %q", filePath)
	}
	return rows, nil
}

func writeRows[T any](filePath string, rows []T) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	writer := parquet.NewGenericWriter[T](f)
	if _, err = writer.Write(rows); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %d rows to %q", len(rows), filePath)
	}
	if err = writer.Close(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to finalize parquet file %q", filePath)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", filePath)
	}
	klog.V(1).Infof("wrote %d rows to %q", len(rows), filePath)
	return nil
}

func toInt64(values []int) []int64 {
	result := make([]int64, len(values))
	for ii, v := range values {
		result[ii] = int64(v)
	}
	return result
}
