package synth_test

import (
	"testing"

	"github.com/iamtutumo/agentkb"
	"github.com/iamtutumo/agentkb/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(title, source string, sections ...agentkb.Section) *agentkb.Stage1Record {
	return &agentkb.Stage1Record{
		Title:    title,
		Sections: sections,
		Metadata: map[string]string{"source": source},
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("merges near-duplicate titles into one topic", func(t *testing.T) {
		t.Parallel()

		records := []*agentkb.Stage1Record{
			record("Refund Policy", "https://example.com/refunds",
				agentkb.Section{Heading: "Returns", Body: "Full refund within 30 days."}),
			record("refund policy ", "https://example.com/faq",
				agentkb.Section{Heading: "Returns", Body: "Contact support to start a return."}),
		}

		topics := synth.Merge(records)

		require.Len(t, topics, 1)
		topic := topics[0]
		assert.Equal(t, "Refund Policy", topic.Title)
		assert.Equal(t, []string{"https://example.com/refunds", "https://example.com/faq"}, topic.Sources)

		require.Len(t, topic.Sections, 1)
		body := topic.Sections[0].Body
		assert.Contains(t, body, "Full refund within 30 days.")
		assert.Contains(t, body, "Contact support to start a return.")
		assert.Contains(t, body, "[source: https://example.com/refunds]")
		assert.Contains(t, body, "[source: https://example.com/faq]")
	})

	t.Run("keeps standalone topics separate", func(t *testing.T) {
		t.Parallel()

		records := []*agentkb.Stage1Record{
			record("Shipping", "a", agentkb.Section{Heading: "Rates", Body: "Flat rate five dollars."}),
			record("Warranty", "b", agentkb.Section{Heading: "Coverage", Body: "Two years."}),
		}

		topics := synth.Merge(records)

		require.Len(t, topics, 2)
		assert.Equal(t, "Shipping", topics[0].Title)
		assert.Equal(t, "Warranty", topics[1].Title)
	})

	t.Run("orders topics by first appearance", func(t *testing.T) {
		t.Parallel()

		records := []*agentkb.Stage1Record{
			record("Beta", "1", agentkb.Section{Heading: "H", Body: "b"}),
			record("Alpha", "2", agentkb.Section{Heading: "H", Body: "a"}),
			record("BETA", "3", agentkb.Section{Heading: "H2", Body: "b2"}),
		}

		topics := synth.Merge(records)

		require.Len(t, topics, 2)
		assert.Equal(t, "Beta", topics[0].Title)
		assert.Equal(t, "Alpha", topics[1].Title)
	})

	t.Run("strips punctuation when grouping", func(t *testing.T) {
		t.Parallel()

		records := []*agentkb.Stage1Record{
			record("Store Hours!", "a", agentkb.Section{Heading: "Weekdays", Body: "9 to 5"}),
			record("store hours", "b", agentkb.Section{Heading: "Weekends", Body: "closed"}),
		}

		topics := synth.Merge(records)

		require.Len(t, topics, 1)
		assert.Len(t, topics[0].Sections, 2)
	})

	t.Run("single-contributor section body stays untagged", func(t *testing.T) {
		t.Parallel()

		records := []*agentkb.Stage1Record{
			record("Contact", "a", agentkb.Section{Heading: "Email", Body: "help@example.com"}),
		}

		topics := synth.Merge(records)

		require.Len(t, topics, 1)
		assert.Equal(t, "help@example.com", topics[0].Sections[0].Body)
	})

	t.Run("is deterministic across runs", func(t *testing.T) {
		t.Parallel()

		records := []*agentkb.Stage1Record{
			record("Refund Policy", "a",
				agentkb.Section{Heading: "Returns", Body: "first"},
				agentkb.Section{Heading: "Exchanges", Body: "second"}),
			record("refund policy", "b",
				agentkb.Section{Heading: "returns", Body: "third"}),
			record("Shipping", "c",
				agentkb.Section{Heading: "Rates", Body: "fourth"}),
		}

		first := synth.Merge(records)
		second := synth.Merge(records)

		assert.Equal(t, first, second)
	})

	t.Run("empty input yields no topics", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, synth.Merge(nil))
	})
}
