package synth

import (
	"fmt"
	"strings"

	"github.com/iamtutumo/agentkb"
)

// FormatText renders a knowledge base as plain text with prominent topic
// and section boundaries. The banner formatting gives retrieval systems
// clean chunk edges when the document is ingested downstream.
func FormatText(kb *agentkb.KnowledgeBase) string {
	var b strings.Builder

	const title = "CUSTOMER SERVICE KNOWLEDGE BASE"
	boundary := strings.Repeat("=", len(title))
	fmt.Fprintf(&b, "%s\n%s\n%s\n\n", boundary, title, boundary)

	for i, topic := range kb.Topics {
		heading := fmt.Sprintf("TOPIC %d: %s", i+1, strings.ToUpper(topic.Title))
		topicBoundary := strings.Repeat("=", len(heading))
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", topicBoundary, heading, topicBoundary)

		for j, section := range topic.Sections {
			subHeading := fmt.Sprintf("SECTION %d.%d: %s", i+1, j+1, section.Heading)
			subBoundary := strings.Repeat("-", len(subHeading))
			fmt.Fprintf(&b, "%s\n%s\n%s\n\n%s\n", subBoundary, subHeading, subBoundary, section.Body)
			for _, item := range section.Items {
				fmt.Fprintf(&b, "- %s\n", item)
			}
			b.WriteString("\n")
		}

		if len(topic.Sources) > 0 {
			fmt.Fprintf(&b, "Sources: %s\n", strings.Join(topic.Sources, ", "))
		}
		fmt.Fprintf(&b, "\n%s\n\n", strings.Repeat("*", 50))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
