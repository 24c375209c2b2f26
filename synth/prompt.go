package synth

import (
	"fmt"
	"strings"

	"github.com/iamtutumo/agentkb"
)

// synthesisSystemPrompt instructs the model to produce voice-optimized
// knowledge-base copy from merged topics.
const synthesisSystemPrompt = `You are an expert at creating comprehensive knowledge bases for AI assistants. Your task is to rewrite the provided topics into clear, voice-optimized copy for a customer service agent.

Follow these important guidelines:
1. Spell out numbers, dates, and measurements for clarity (e.g., "twenty-five percent" not "25%")
2. Avoid abbreviations and replace with full words
3. Include pronunciation guidance for ambiguous or technical terms
4. Maintain factual accuracy - never add speculative or made-up information
5. Preserve all specific information like prices, contacts, hours, and procedures
6. Keep every topic you are given, with its exact title, in the same order
7. Be extremely thorough - the agent will rely entirely on this knowledge base

Your output MUST be valid JSON that follows the specified schema EXACTLY.`

const synthesisUserPromptFormat = `Please rewrite the following knowledge-base topics into voice-optimized copy. This will be used for customer service purposes.

%sTopics to rewrite:
%s

Return a JSON object with this EXACT structure:

{
  "topics": [
    {
      "title": "Exact topic title as given",
      "sections": [
        {"heading": "Section heading", "body": "Voice-optimized content with ALL relevant details"}
      ]
    }
  ],
  "summary": "A concise running summary of everything covered so far, for use as context in later batches"
}

Include every topic from the input with its exact title. Do not summarize or abbreviate important details. Ensure your response is only the JSON object with no additional text.`

// systemPromptRequest asks for the agent system prompt once all topics
// have been synthesized.
const systemPromptRequestFormat = `Based on the following summary of a customer service knowledge base, create a detailed system prompt for the voice agent that will serve it.

Knowledge base summary:
%s

Use proper markdown format with # for main sections. Include these five sections: Personality, Environment, Tone, Goal, and Guardrails.

For the Tone section: use ellipses ("...") to indicate distinct, audible pauses, direct the agent to pronounce special characters properly (say "dot" instead of "."), instruct to spell out acronyms, and recommend normalized, spoken language without abbreviations.

Make the prompt detailed and thorough, at least 400 words, specific to the business domain from the summary, with actionable guidance for handling common customer service scenarios. Respond with the system prompt only.`

// strictJSONInstruction is appended for the single retry after an
// unparsable response.
const strictJSONInstruction = `

Your previous response was not valid JSON. Return ONLY a valid JSON object matching the schema exactly, with no markdown fences and no additional text.`

// buildBatchPrompt renders one batch of topics, carrying the running
// summary from earlier batches so no context is lost across calls.
func buildBatchPrompt(topics []agentkb.Topic, runningSummary string, strict bool) string {
	var context string
	if runningSummary != "" {
		context = fmt.Sprintf("Summary of topics covered in earlier batches:\n%s\n\n", runningSummary)
	}

	prompt := fmt.Sprintf(synthesisUserPromptFormat, context, renderTopics(topics))
	if strict {
		prompt += strictJSONInstruction
	}
	return prompt
}

// renderTopics serializes merged topics into readable prompt text.
func renderTopics(topics []agentkb.Topic) string {
	var b strings.Builder
	for i, topic := range topics {
		fmt.Fprintf(&b, "## Topic %d: %s\n", i+1, topic.Title)
		for _, section := range topic.Sections {
			fmt.Fprintf(&b, "### %s\n%s\n", section.Heading, section.Body)
			for _, item := range section.Items {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
