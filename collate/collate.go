// Package collate turns batches of sentences (words plus per-word tags) into the padded model inputs
// and aligned labels of a token classification training step.
//
// Each example is aligned independently (see package align): failures are recorded per example
// and never abort the batch, and the output preserves the input order.
package collate

import (
	"fmt"
	"iter"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/tokenclass/align"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// Batch of sentences: Tokens[i] are the words of the i-th sentence, and Tags[i] their tags.
type Batch struct {
	Tokens [][]string
	Tags   [][]string
}

// Len returns the number of sentences in the batch.
func (b Batch) Len() int {
	return len(b.Tokens)
}

// ExampleError is the error of one example of a batch.
type ExampleError struct {
	Index int
	Err   error
}

func (e *ExampleError) Error() string {
	return fmt.Sprintf("example #%d: %v", e.Index, e.Err)
}

// Unwrap returns the alignment error.
func (e *ExampleError) Unwrap() error {
	return e.Err
}

// Collated batch: InputIDs, AttentionMask and Labels have one row per example, in the order of the
// input batch, each row with MaxLen elements.
type Collated struct {
	MaxLen        int
	InputIDs      [][]int
	AttentionMask [][]int
	Labels        [][]int

	// Results holds the status of each example.
	Results []align.Status

	// Errors of the examples that failed, sorted by index.
	Errors []*ExampleError
}

// Len returns the number of examples.
func (c *Collated) Len() int {
	return len(c.InputIDs)
}

// Err returns all example errors combined, or nil if there were none.
func (c *Collated) Err() error {
	errs := make([]error, len(c.Errors))
	for ii, err := range c.Errors {
		errs[ii] = err
	}
	return multierr.Combine(errs...)
}

// StatusCounts returns the number of examples with each status.
func (c *Collated) StatusCounts() map[align.Status]int {
	counts := make(map[align.Status]int, 3)
	for _, status := range c.Results {
		counts[status]++
	}
	return counts
}

// Tensors materializes the batch as int64 tensors shaped [batchSize, MaxLen], keyed by
// "input_ids", "attention_mask" and "labels".
func (c *Collated) Tensors() map[string]*tensors.Tensor {
	toTensor := func(rows [][]int) *tensors.Tensor {
		flat := make([]int64, 0, len(rows)*c.MaxLen)
		for _, row := range rows {
			for _, v := range row {
				flat = append(flat, int64(v))
			}
		}
		return tensors.FromFlatDataAndDimensions(flat, len(rows), c.MaxLen)
	}
	return map[string]*tensors.Tensor{
		"input_ids":      toTensor(c.InputIDs),
		"attention_mask": toTensor(c.AttentionMask),
		"labels":         toTensor(c.Labels),
	}
}

// Collator collates batches using an align.Aligner.
type Collator struct {
	aligner     *align.Aligner
	parallelism int
}

// Option configures a Collator.
type Option func(c *Collator)

// WithParallelism aligns up to n examples of a batch concurrently. The default, 1, is sequential.
func WithParallelism(n int) Option {
	return func(c *Collator) {
		c.parallelism = max(n, 1)
	}
}

// New creates a Collator.
func New(aligner *align.Aligner, options ...Option) *Collator {
	c := &Collator{aligner: aligner, parallelism: 1}
	for _, option := range options {
		option(c)
	}
	return c
}

// Collate aligns every example of the batch.
//
// Examples are independent: a failing example (unknown tag, more words than tags) still
// contributes its inputs with sentinel labels, and its error is recorded in Collated.Errors.
// If Tags has fewer rows than Tokens, the missing rows are taken as empty.
func (c *Collator) Collate(batch Batch) *Collated {
	n := batch.Len()
	examples := make([]*align.Example, n)
	errs := make([]error, n)
	alignOne := func(ii int) {
		var tags []string
		if ii < len(batch.Tags) {
			tags = batch.Tags[ii]
		}
		examples[ii], errs[ii] = c.aligner.Align(batch.Tokens[ii], tags)
	}
	if c.parallelism > 1 && n > 1 {
		p := pool.New().WithMaxGoroutines(c.parallelism)
		for ii := range n {
			p.Go(func() { alignOne(ii) })
		}
		p.Wait()
	} else {
		for ii := range n {
			alignOne(ii)
		}
	}

	collated := &Collated{
		MaxLen:        c.aligner.MaxLen(),
		InputIDs:      make([][]int, n),
		AttentionMask: make([][]int, n),
		Labels:        make([][]int, n),
		Results:       make([]align.Status, n),
	}
	for ii, example := range examples {
		collated.InputIDs[ii] = example.InputIDs
		collated.AttentionMask[ii] = example.AttentionMask
		collated.Labels[ii] = example.Labels
		collated.Results[ii] = example.Status
		if errs[ii] != nil {
			collated.Errors = append(collated.Errors, &ExampleError{Index: ii, Err: errs[ii]})
		}
	}
	if len(collated.Errors) > 0 {
		klog.V(1).Infof("collated batch of %d examples with %d failures", n, len(collated.Errors))
	}
	return collated
}

// CollateAll collates each of the batches, yielding the batch index with its result.
func (c *Collator) CollateAll(batches iter.Seq[Batch]) iter.Seq2[int, *Collated] {
	return func(yield func(int, *Collated) bool) {
		idx := 0
		for batch := range batches {
			if !yield(idx, c.Collate(batch)) {
				return
			}
			idx++
		}
	}
}
