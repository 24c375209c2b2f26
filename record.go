package agentkb

import "context"

// Section is one heading/body unit of an extracted or merged document.
type Section struct {
	Heading     string   `json:"heading"`
	Body        string   `json:"body"`
	ContentType string   `json:"contentType,omitempty"` // faq|service|contact|policy|pricing|hours|location
	Items       []string `json:"items,omitempty"`
}

// Stage1Record is the structured extraction result for one page artifact.
// It is immutable and keyed by artifact name plus timestamp so re-runs never
// overwrite earlier records.
type Stage1Record struct {
	Title    string            `json:"title"`
	Sections []Section         `json:"sections"`
	Metadata map[string]string `json:"metadata"`
}

// Validate returns an error if the record does not satisfy the extraction
// schema.
func (r *Stage1Record) Validate() error {
	if r.Title == "" {
		return Errorf(EINVALID, "record title required")
	}
	if len(r.Sections) == 0 {
		return Errorf(EINVALID, "record must contain at least one section")
	}
	for i, s := range r.Sections {
		if s.Heading == "" {
			return Errorf(EINVALID, "section %d heading required", i)
		}
	}
	return nil
}

// ExtractOutcome reports how one artifact fared during batch extraction.
type ExtractOutcome struct {
	Source string
	Record *Stage1Record
	Err    error
}

// RecordStore persists Stage-1 records, one JSON file per processed
// artifact, grouped under a session.
type RecordStore interface {
	// SaveRecord writes a record keyed by the originating artifact name.
	// The store appends a timestamp to the key to avoid collisions.
	SaveRecord(ctx context.Context, sessionID, artifactName string, record *Stage1Record) error

	// ListRecords returns all records of a session in save order.
	// Returns ENOTFOUND if the session has no records.
	ListRecords(ctx context.Context, sessionID string) ([]*Stage1Record, error)
}
