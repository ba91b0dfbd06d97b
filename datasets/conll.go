package datasets

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DocStart marks document boundaries in CoNLL-2003 files. These lines are skipped.
const DocStart = "-DOCSTART-"

type conllConfig struct {
	tagColumn int
	separator string
}

// CoNLLOption configures ReadCoNLL.
type CoNLLOption func(c *conllConfig)

// WithTagColumn sets the column holding the tag. Negative values count from the end of the
// line: the default, -1, is the last column. The word is always the first column.
func WithTagColumn(column int) CoNLLOption {
	return func(c *conllConfig) {
		c.tagColumn = column
	}
}

// WithSeparator splits columns on sep instead of on any whitespace, for files whose words may
// contain spaces (e.g. tab-separated files).
func WithSeparator(sep string) CoNLLOption {
	return func(c *conllConfig) {
		c.separator = sep
	}
}

// ReadCoNLL reads a CoNLL formatted dataset: one word per line followed by its annotations, with
// sentences separated by blank lines.
func ReadCoNLL(r io.Reader, options ...CoNLLOption) ([]Example, error) {
	cfg := &conllConfig{tagColumn: -1}
	for _, option := range options {
		option(cfg)
	}

	var (
		examples []Example
		current  Example
	)
	flush := func() {
		if len(current.Tokens) > 0 {
			examples = append(examples, current)
		}
		current = Example{}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, DocStart) {
			flush()
			continue
		}
		var columns []string
		if cfg.separator != "" {
			columns = strings.Split(line, cfg.separator)
		} else {
			columns = strings.Fields(line)
		}
		tagIdx := cfg.tagColumn
		if tagIdx < 0 {
			tagIdx += len(columns)
		}
		if tagIdx <= 0 || tagIdx >= len(columns) {
			return nil, errors.Errorf("line %d: tag column %d not available in %q (%d columns)",
				lineNum, cfg.tagColumn, line, len(columns))
		}
		current.Tokens = append(current.Tokens, columns[0])
		current.Tags = append(current.Tags, columns[tagIdx])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed reading line %d", lineNum+1)
	}
	flush()
	klog.V(1).Infof("read %d CoNLL sentences (%d lines)", len(examples), lineNum)
	return examples, nil
}

// ReadCoNLLFile reads a CoNLL formatted file, see ReadCoNLL.
func ReadCoNLLFile(filePath string, options ...CoNLLOption) ([]Example, error) {
	contents, closeFn, err := mapFile(filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()
	examples, err := ReadCoNLL(bytes.NewReader(contents), options...)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", filePath)
	}
	return examples, nil
}
