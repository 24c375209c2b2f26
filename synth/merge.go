package synth

import (
	"strings"
	"unicode"

	"github.com/iamtutumo/agentkb"
)

// contribution is one record's text for a merged section.
type contribution struct {
	body   string
	source string
}

type mergedSection struct {
	section       agentkb.Section
	contributions []contribution
}

type mergedTopic struct {
	title        string
	sections     []*mergedSection
	sectionIndex map[string]*mergedSection
	sources      []string
	sourceSeen   map[string]bool
}

// Merge groups stage-one records into deduplicated topics. Records whose
// normalized titles match merge into one canonical topic titled after the
// first-seen version; their sections are combined in record order, and
// sections with matching normalized headings have their bodies concatenated
// with provenance tags instead of one overwriting the other.
//
// Merge is a pure function of its input: topics appear in the order their
// canonical version first appeared, by record order then section order, so
// re-running it over the same records yields identical output.
func Merge(records []*agentkb.Stage1Record) []agentkb.Topic {
	var topics []*mergedTopic
	topicIndex := make(map[string]*mergedTopic)

	for _, record := range records {
		source := recordSource(record)

		key := normalizeTitle(record.Title)
		topic, ok := topicIndex[key]
		if !ok {
			topic = &mergedTopic{
				title:        record.Title,
				sectionIndex: make(map[string]*mergedSection),
				sourceSeen:   make(map[string]bool),
			}
			topicIndex[key] = topic
			topics = append(topics, topic)
		}

		if !topic.sourceSeen[source] {
			topic.sourceSeen[source] = true
			topic.sources = append(topic.sources, source)
		}

		for _, section := range record.Sections {
			sectionKey := normalizeTitle(section.Heading)
			existing, ok := topic.sectionIndex[sectionKey]
			if !ok {
				ms := &mergedSection{
					section:       section,
					contributions: []contribution{{body: section.Body, source: source}},
				}
				topic.sectionIndex[sectionKey] = ms
				topic.sections = append(topic.sections, ms)
				continue
			}
			existing.contributions = append(existing.contributions, contribution{body: section.Body, source: source})
			existing.section.Items = append(existing.section.Items, section.Items...)
		}
	}

	out := make([]agentkb.Topic, 0, len(topics))
	for _, topic := range topics {
		sections := make([]agentkb.Section, 0, len(topic.sections))
		for _, ms := range topic.sections {
			section := ms.section
			section.Body = combineBodies(ms.contributions)
			sections = append(sections, section)
		}
		out = append(out, agentkb.Topic{
			Title:    topic.title,
			Sections: sections,
			Sources:  topic.sources,
		})
	}
	return out
}

// combineBodies concatenates duplicate section bodies. A section with a
// single contributor keeps its body untouched; merged duplicates carry a
// tag identifying each originating source.
func combineBodies(contributions []contribution) string {
	if len(contributions) == 1 {
		return contributions[0].body
	}
	tagged := make([]string, len(contributions))
	for i, c := range contributions {
		tagged[i] = c.body + "\n[source: " + c.source + "]"
	}
	return strings.Join(tagged, "\n\n")
}

// recordSource identifies the origin of a record for provenance tracking.
func recordSource(record *agentkb.Stage1Record) string {
	if src := record.Metadata["source"]; src != "" {
		return src
	}
	return record.Title
}

// normalizeTitle produces the grouping key for near-duplicate titles:
// case-insensitive, punctuation stripped, whitespace collapsed.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
