package extract

import (
	"regexp"
	"strings"

	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/internal/domain/normalize"
)

// Older revisions of the source render the listing as a bullet list:
//
//	- [Provider: Model Name](https://host/provider/slug) 950M tokens,
//	  32K context, $0.0001/M input, $0.0002/M output
//
// Fixed regexes pull the optional fields out of the remainder of the line.
var (
	bulletPrefix   = regexp.MustCompile(`^\s*[-*+]\s+`)
	contextField   = regexp.MustCompile(`(?i)([\d,]+\s*K?)\s*context|context[:\s]+([\d,]+\s*K?)`)
	priceField     = regexp.MustCompile(`\$[\d.]+/M`)
	tokensField    = regexp.MustCompile(`(?i)([\d,.]+\s*[MB])\s*tokens`)
	whitespaceOnly = regexp.MustCompile(`^\s*$`)
)

// parseBullets accepts bullet lines carrying a model link. Field order on
// the line is not guaranteed, so each field is matched independently.
func parseBullets(lines []string) Result {
	res := Result{Strategy: StrategyBullets}
	position := 0

	for _, raw := range lines {
		if whitespaceOnly.MatchString(raw) || !bulletPrefix.MatchString(raw) {
			continue
		}
		line := bulletPrefix.ReplaceAllString(raw, "")

		cell, ok := parseModelCell(line)
		if !ok {
			res.Skipped++
			continue
		}

		// Weekly token volume, when advertised, must at least be numeric;
		// a malformed figure drops the row like any strict field.
		if m := tokensField.FindStringSubmatch(line); m != nil {
			if _, err := normalize.TokenCount(m[1]); err != nil {
				res.Skipped++
				continue
			}
		}

		contextLength := 0
		if m := contextField.FindStringSubmatch(line); m != nil {
			text := m[1]
			if text == "" {
				text = m[2]
			}
			text = strings.ReplaceAll(strings.ReplaceAll(text, ",", ""), " ", "")
			var err error
			contextLength, err = normalize.ContextLength(text)
			if err != nil {
				res.Skipped++
				continue
			}
		}

		var promptPrice, completionPrice float64
		if prices := priceField.FindAllString(line, 2); len(prices) > 0 {
			promptPrice = normalize.Price(prices[0])
			if len(prices) > 1 {
				completionPrice = normalize.Price(prices[1])
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
			PromptPrice:     promptPrice,
			CompletionPrice: completionPrice,
		})
	}

	return res
}
