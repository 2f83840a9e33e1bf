package extract_test

import (
	"testing"

	"github.com/okian/modelrank/internal/domain/extract"
	. "github.com/smartystreets/goconvey/convey"
)

const twoRowTable = `
Some preamble text about the listing.

| Model Name & ID | Input Price | Output Price | Context Length |
|-----------------|-------------|--------------|----------------|
| [Mistral 7B](https://openrouter.ai/mistralai/Mistral-7B-Instruct-v0.1) | $0.0001/M | $0.0002/M | 32K |
| [Llama 2 7B](https://openrouter.ai/meta-llama/Llama-2-7b-chat) | $0.0001/M | $0.0002/M | 16K |

Some trailing text.
`

func TestExtractTable(t *testing.T) {
	Convey("Given a two-row table document", t, func() {
		res, err := extract.Extract(twoRowTable)

		Convey("Then both rows are accepted via the table strategy", func() {
			So(err, ShouldBeNil)
			So(res.Strategy, ShouldEqual, extract.StrategyTable)
			So(res.Candidates, ShouldHaveLength, 2)
			So(res.Skipped, ShouldEqual, 0)
		})

		Convey("And ids derive from the embedded links", func() {
			So(res.Candidates[0].ID, ShouldEqual, "mistralai/Mistral-7B-Instruct-v0.1")
			So(res.Candidates[1].ID, ShouldEqual, "meta-llama/Llama-2-7b-chat")
		})

		Convey("And names, providers, context and prices are normalized", func() {
			first := res.Candidates[0]
			So(first.Name, ShouldEqual, "Mistral 7B")
			So(first.Provider, ShouldEqual, "Mistralai")
			So(first.ContextLength, ShouldEqual, 32768)
			So(first.PromptPrice, ShouldEqual, 0.0001)
			So(first.CompletionPrice, ShouldEqual, 0.0002)

			So(res.Candidates[1].ContextLength, ShouldEqual, 16384)
		})

		Convey("And rank scores decay with position", func() {
			So(res.Candidates[0].RankScore, ShouldEqual, 10000.0)
			So(res.Candidates[1].RankScore, ShouldEqual, 5000.0)
			So(res.Candidates[0].RankScore, ShouldBeGreaterThan, res.Candidates[1].RankScore)
		})

		Convey("And extraction is restartable", func() {
			again, err := extract.Extract(twoRowTable)
			So(err, ShouldBeNil)
			So(again.Candidates, ShouldResemble, res.Candidates)
		})
	})
}

func TestExtractHeaderMapping(t *testing.T) {
	Convey("Given a table with shuffled columns", t, func() {
		doc := `
| Context | Output Price | Model | Price (Input) |
|---------|--------------|-------|---------------|
| 8K | $0.002/M | [Tiny](https://openrouter.ai/acme/tiny-1) | $0.001/M |
`
		res, err := extract.Extract(doc)

		Convey("Then the header mapping routes cells by role", func() {
			So(err, ShouldBeNil)
			So(res.Candidates, ShouldHaveLength, 1)
			c := res.Candidates[0]
			So(c.ID, ShouldEqual, "acme/tiny-1")
			So(c.ContextLength, ShouldEqual, 8192)
			So(c.PromptPrice, ShouldEqual, 0.001)
			So(c.CompletionPrice, ShouldEqual, 0.002)
		})
	})
}

func TestExtractRowTolerance(t *testing.T) {
	Convey("Given a table with noisy rows", t, func() {
		doc := `
| Model | Input | Output | Context |
|-------|-------|--------|---------|
| [Good](https://openrouter.ai/acme/good-model) | $0.001/M | $0.002/M | 4K |
| no link here at all | $1/M | $2/M | 4K |
| [Short](https://openrouter.ai/acme/short) | $1/M |
| [BadCtx](https://openrouter.ai/acme/bad-ctx) | $1/M | $2/M | enormous |
| [AlsoGood](https://openrouter.ai/acme/also-good) | | | |
`
		res, err := extract.Extract(doc)

		Convey("Then good rows survive and noisy rows are counted as skipped", func() {
			So(err, ShouldBeNil)
			So(res.Candidates, ShouldHaveLength, 2)
			So(res.Skipped, ShouldEqual, 3)
			So(res.Candidates[0].ID, ShouldEqual, "acme/good-model")
			So(res.Candidates[1].ID, ShouldEqual, "acme/also-good")
		})

		Convey("And the empty context and price cells degrade to zero", func() {
			last := res.Candidates[1]
			So(last.ContextLength, ShouldEqual, 0)
			So(last.PromptPrice, ShouldEqual, 0.0)
			So(last.CompletionPrice, ShouldEqual, 0.0)
		})

		Convey("And rank positions count accepted rows only", func() {
			So(res.Candidates[0].RankScore, ShouldEqual, 10000.0)
			So(res.Candidates[1].RankScore, ShouldEqual, 5000.0)
		})
	})
}

func TestExtractIdentityRules(t *testing.T) {
	Convey("Given identity variants in the model cell", t, func() {
		Convey("When the cell carries a back-quoted id", func() {
			doc := "| Model | Input | Output | Context |\n" +
				"|---|---|---|---|\n" +
				"| [Display](https://openrouter.ai/acme/from-url) `acme/canonical-id` | $1/M | $2/M | 4K |\n"
			res, err := extract.Extract(doc)
			So(err, ShouldBeNil)
			So(res.Candidates[0].ID, ShouldEqual, "acme/canonical-id")
		})

		Convey("When the display name embeds a provider prefix", func() {
			doc := "| Model | Input | Output | Context |\n" +
				"|---|---|---|---|\n" +
				"| [Acme Labs: Deluxe 70B](https://openrouter.ai/acme-labs/deluxe-70b) | $1/M | $2/M | 4K |\n"
			res, err := extract.Extract(doc)
			So(err, ShouldBeNil)
			So(res.Candidates[0].Provider, ShouldEqual, "Acme Labs")
			So(res.Candidates[0].Name, ShouldEqual, "Deluxe 70B")
		})

		Convey("When the provider comes from the id slug it is title-cased", func() {
			doc := "| Model | Input | Output | Context |\n" +
				"|---|---|---|---|\n" +
				"| [Deluxe](https://openrouter.ai/acme-labs/deluxe-70b) | $1/M | $2/M | 4K |\n"
			res, err := extract.Extract(doc)
			So(err, ShouldBeNil)
			So(res.Candidates[0].Provider, ShouldEqual, "Acme Labs")
		})

		Convey("When the cell carries a bare URL instead of a link", func() {
			doc := "| Model | Input | Output | Context |\n" +
				"|---|---|---|---|\n" +
				"| Plain https://openrouter.ai/acme/bare-url | $1/M | $2/M | 4K |\n"
			res, err := extract.Extract(doc)
			So(err, ShouldBeNil)
			So(res.Candidates[0].ID, ShouldEqual, "acme/bare-url")
		})
	})
}

func TestExtractBullets(t *testing.T) {
	Convey("Given a bullet-list document", t, func() {
		doc := `
# Weekly Rankings

- [Mistral 7B](https://openrouter.ai/mistralai/mistral-7b) 950M tokens, 32K context, $0.0001/M, $0.0002/M
- [Llama 2](https://openrouter.ai/meta-llama/llama-2-7b) 120M tokens, 4K context
- plain bullet without a link
`
		res, err := extract.Extract(doc)

		Convey("Then the bullet strategy is selected", func() {
			So(err, ShouldBeNil)
			So(res.Strategy, ShouldEqual, extract.StrategyBullets)
		})

		Convey("And linked bullets parse with their optional fields", func() {
			So(res.Candidates, ShouldHaveLength, 2)
			So(res.Skipped, ShouldEqual, 1)

			first := res.Candidates[0]
			So(first.ID, ShouldEqual, "mistralai/mistral-7b")
			So(first.ContextLength, ShouldEqual, 32768)
			So(first.PromptPrice, ShouldEqual, 0.0001)
			So(first.CompletionPrice, ShouldEqual, 0.0002)

			second := res.Candidates[1]
			So(second.ContextLength, ShouldEqual, 4096)
			So(second.PromptPrice, ShouldEqual, 0.0)
		})

		Convey("And rank scores follow list order", func() {
			So(res.Candidates[0].RankScore, ShouldEqual, 10000.0)
			So(res.Candidates[1].RankScore, ShouldEqual, 5000.0)
		})
	})
}

func TestExtractRejectsEmptyDocuments(t *testing.T) {
	Convey("Given documents with no parsable rows", t, func() {
		Convey("When the document is empty prose", func() {
			_, err := extract.Extract("nothing to see here\njust words\n")
			So(err, ShouldWrap, extract.ErrNoRecords)
		})

		Convey("When a header exists but no data rows follow", func() {
			doc := "| Model | Input | Output | Context |\n|---|---|---|---|\n"
			_, err := extract.Extract(doc)
			So(err, ShouldWrap, extract.ErrNoRecords)
		})

		Convey("When every row is malformed", func() {
			doc := "| Model | Input | Output | Context |\n" +
				"|---|---|---|---|\n" +
				"| nothing linked | a | b | c |\n"
			_, err := extract.Extract(doc)
			So(err, ShouldWrap, extract.ErrNoRecords)
		})
	})
}
