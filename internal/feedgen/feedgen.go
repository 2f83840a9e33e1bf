// Package feedgen fabricates Markdown model listings in the shapes the
// extractor understands. It exists for local runs and load experiments:
// point the tracker's source URL at a served feed and cycles run without
// touching the real upstream.
package feedgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Listing formats.
const (
	FormatTable   = "table"
	FormatBullets = "bullets"
)

// Price and context generation ranges.
const (
	randomFloatDivisor = 1000000
	priceMin           = 0.00005
	priceRange         = 0.005
)

var providers = []string{
	"mistralai", "meta-llama", "anthropic", "google", "openai",
	"cohere", "deepseek", "qwen", "nousresearch", "microsoft",
}

var nameStems = []string{
	"Comet", "Falcon", "Orchid", "Granite", "Nimbus",
	"Aurora", "Basalt", "Cinder", "Drift", "Ember",
}

var contextSizes = []int{4096, 8192, 16384, 32768, 65536, 131072}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func pick[T any](items []T) T {
	return items[int(getRandomFloat()*float64(len(items)))%len(items)]
}

// Model is one fabricated listing entry.
type Model struct {
	Provider        string
	Slug            string
	Name            string
	ContextTokens   int
	PromptPrice     float64
	CompletionPrice float64
}

// GenerateModels fabricates n unique models. Slug uniqueness comes from a
// UUID fragment, so repeated generations never collide.
func GenerateModels(n int) []Model {
	models := make([]Model, n)
	for i := range models {
		provider := pick(providers)
		stem := pick(nameStems)
		tag := strings.Split(uuid.New().String(), "-")[0]
		prompt := priceMin + getRandomFloat()*priceRange

		models[i] = Model{
			Provider:        provider,
			Slug:            fmt.Sprintf("%s-%s", strings.ToLower(stem), tag),
			Name:            fmt.Sprintf("%s %s", stem, strings.ToUpper(tag[:4])),
			ContextTokens:   pick(contextSizes),
			PromptPrice:     prompt,
			CompletionPrice: prompt * (1.5 + getRandomFloat()),
		}
	}
	return models
}

// RenderTable renders models as the pipe-table listing shape.
func RenderTable(models []Model) string {
	var b strings.Builder
	b.WriteString("# Model Rankings\n\n")
	b.WriteString("| Model | Input Price | Output Price | Context |\n")
	b.WriteString("|-------|-------------|--------------|---------|\n")
	for _, m := range models {
		fmt.Fprintf(&b, "| [%s](https://openrouter.ai/%s/%s) | $%.5f/M | $%.5f/M | %dK |\n",
			m.Name, m.Provider, m.Slug, m.PromptPrice, m.CompletionPrice, m.ContextTokens/1024)
	}
	return b.String()
}

// RenderBullets renders models as the bullet-list listing shape.
func RenderBullets(models []Model) string {
	var b strings.Builder
	b.WriteString("# Model Rankings\n\n")
	for _, m := range models {
		fmt.Fprintf(&b, "- [%s](https://openrouter.ai/%s/%s) %dK context, $%.5f/M input, $%.5f/M output\n",
			m.Name, m.Provider, m.Slug, m.ContextTokens/1024, m.PromptPrice, m.CompletionPrice)
	}
	return b.String()
}

// Generate fabricates a complete listing document in the given format.
func Generate(n int, format string) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: need at least one model", ErrBadConfig)
	}
	models := GenerateModels(n)
	switch format {
	case FormatTable:
		return RenderTable(models), nil
	case FormatBullets:
		return RenderBullets(models), nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrBadConfig, format)
	}
}
