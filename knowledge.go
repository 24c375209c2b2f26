package agentkb

import "context"

// Topic is one merged, deduplicated subject in the final knowledge base.
// Sources lists every original page or file that contributed to it.
type Topic struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	Sources  []string  `json:"sources"`
}

// KnowledgeBase is the final output of Stage-2 synthesis: one coherent
// document plus the system prompt for the agent that will serve it.
type KnowledgeBase struct {
	AgentSystemPrompt string            `json:"agentSystemPrompt"`
	Topics            []Topic           `json:"topics"`
	Metadata          map[string]string `json:"metadata"`
}

// Validate returns an error if the knowledge base contains invalid fields.
func (kb *KnowledgeBase) Validate() error {
	if len(kb.Topics) == 0 {
		return Errorf(EINVALID, "knowledge base must contain at least one topic")
	}
	return nil
}

// KnowledgeStore persists the final knowledge-base document, written once
// per synthesis run.
type KnowledgeStore interface {
	// SaveKnowledgeBase writes the document and returns its storage path.
	SaveKnowledgeBase(ctx context.Context, sessionID string, kb *KnowledgeBase) (string, error)

	// LoadKnowledgeBase returns the most recent document of a session.
	// Returns ENOTFOUND if none has been written.
	LoadKnowledgeBase(ctx context.Context, sessionID string) (*KnowledgeBase, error)
}
