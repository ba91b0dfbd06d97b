package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/tokenclass/align"
	"github.com/gomlx/tokenclass/collate"
	"github.com/gomlx/tokenclass/internal/config"
)

// maxReportedErrors is the number of example errors listed in the summary.
const maxReportedErrors = 5

// Summary of a data preparation run.
type Summary struct {
	Input    string
	Output   string
	MaxLen   int
	Examples int
	Batches  int
	Tokens   int
	Statuses map[align.Status]int
	Errors   []string
}

func newSummary(cfg *config.Config, numExamples int) *Summary {
	return &Summary{
		Input:    cfg.Input,
		Output:   cfg.Output,
		MaxLen:   cfg.MaxLen,
		Examples: numExamples,
		Statuses: make(map[align.Status]int),
	}
}

// add accounts for one collated batch.
func (s *Summary) add(batchIdx int, collated *collate.Collated) {
	s.Batches++
	for status, count := range collated.StatusCounts() {
		s.Statuses[status] += count
	}
	for _, mask := range collated.AttentionMask {
		for _, m := range mask {
			s.Tokens += m
		}
	}
	for _, exampleErr := range collated.Errors {
		if len(s.Errors) >= maxReportedErrors {
			break
		}
		s.Errors = append(s.Errors, fmt.Sprintf("batch #%d, %v", batchIdx, exampleErr))
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Render the summary as a table, followed by the first example errors.
func (s *Summary) Render() string {
	output := s.Output
	if output == "" {
		output = "(not written)"
	}
	rows := [][]string{
		{"input", s.Input},
		{"output", output},
		{"max_len", strconv.Itoa(s.MaxLen)},
		{"examples", strconv.Itoa(s.Examples)},
		{"batches", strconv.Itoa(s.Batches)},
		{"non-padding tokens", strconv.Itoa(s.Tokens)},
	}
	for _, status := range []align.Status{align.StatusAligned, align.StatusTruncated, align.StatusFailed} {
		rows = append(rows, []string{status.String(), strconv.Itoa(s.Statuses[status])})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("nerprep summary"))
	sb.WriteString("\n")
	sb.WriteString(t.Render())
	for _, msg := range s.Errors {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(msg))
	}
	return sb.String()
}
