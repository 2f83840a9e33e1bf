package extract

import (
	"strings"

	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/internal/domain/normalize"
)

// Column roles resolved from the header. Positional defaults cover headers
// that name none of the roles.
const (
	defaultModelIdx   = 0
	defaultInputIdx   = 1
	defaultOutputIdx  = 2
	defaultContextIdx = 3
	minRowCells       = 4
)

type columnMap struct {
	model   int
	input   int
	output  int
	context int
}

// mapColumns builds the role -> index mapping from header cell texts using
// case-insensitive substring rules.
func mapColumns(headers []string) columnMap {
	m := columnMap{
		model:   defaultModelIdx,
		input:   defaultInputIdx,
		output:  defaultOutputIdx,
		context: defaultContextIdx,
	}
	for idx, h := range headers {
		name := strings.ToLower(h)
		switch {
		case strings.Contains(name, "model") || strings.Contains(name, "name"):
			m.model = idx
		case strings.Contains(name, "input") ||
			(strings.Contains(name, "price") && !strings.Contains(name, "output")):
			m.input = idx
		case strings.Contains(name, "output") || strings.Contains(name, "completion"):
			m.output = idx
		case strings.Contains(name, "context") || strings.Contains(name, "length"):
			m.context = idx
		}
	}
	return m
}

func (m columnMap) max() int {
	maxIdx := m.model
	for _, idx := range []int{m.input, m.output, m.context} {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	return maxIdx
}

// splitCells splits a delimiter-prefixed row into trimmed cell texts,
// dropping the empty edge cells produced by leading/trailing delimiters.
func splitCells(line string) []string {
	cells := strings.Split(line, "|")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// parseTable scans lines for the first recognizable header, maps its
// columns, then accepts data rows until the table ends. Malformed rows are
// skipped, never fatal.
func parseTable(lines []string) Result {
	res := Result{Strategy: StrategyTable}

	inTable := false
	pastSeparator := false
	var cols columnMap
	position := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if !inTable {
			if isHeaderLine(line) {
				inTable = true
				pastSeparator = false
				cols = mapColumns(splitCells(line))
			}
			continue
		}

		// Exactly one separator line follows the header.
		if !pastSeparator {
			if strings.HasPrefix(line, "|") && strings.Contains(line, "-") {
				pastSeparator = true
				continue
			}
			pastSeparator = true
		}

		if !strings.HasPrefix(line, "|") {
			continue
		}

		cells := splitCells(line)
		if len(cells) < minRowCells || cols.max() >= len(cells) {
			res.Skipped++
			continue
		}

		cell, ok := parseModelCell(cells[cols.model])
		if !ok {
			res.Skipped++
			continue
		}

		contextLength := 0
		if ctx := strings.ReplaceAll(cells[cols.context], ",", ""); ctx != "" {
			var err error
			contextLength, err = normalize.ContextLength(ctx)
			if err != nil {
				// Strict numeric field: the row is dropped, the cycle continues.
				res.Skipped++
				continue
			}
		}

		position++
		res.Candidates = append(res.Candidates, model.Candidate{
			ID:              cell.id,
			Name:            cell.name,
			Provider:        cell.provider,
			ContextLength:   contextLength,
			Description:     "",
			RankScore:       rankScoreBase / float64(position),
			PromptPrice:     normalize.Price(cells[cols.input]),
			CompletionPrice: normalize.Price(cells[cols.output]),
		})
	}

	return res
}
