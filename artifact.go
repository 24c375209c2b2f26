package agentkb

import (
	"context"
	"strings"
	"time"
)

var sourceKeyReplacer = strings.NewReplacer(
	"https://", "",
	"http://", "",
	"/", "_",
	":", "_",
	"?", "_",
	"&", "_",
	"=", "_",
	"#", "_",
	"%", "_",
	" ", "_",
	"\\", "_",
)

// SourceKey derives a filesystem-safe storage key from a URL or filename.
// The key preserves traceability to the original source.
func SourceKey(source string) string {
	key := sourceKeyReplacer.Replace(source)
	key = strings.Trim(key, "_.")
	if key == "" {
		return "index"
	}
	// Keep names comfortably below filesystem limits.
	if len(key) > 150 {
		key = key[:150]
	}
	return key
}

// PageArtifact is the cleaned text of one crawled page or uploaded file.
// It is immutable once written to the raw store.
type PageArtifact struct {
	SessionID   string    `json:"sessionId"`
	Source      string    `json:"source"` // URL or filename
	Name        string    `json:"name"`   // storage key derived from Source
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Depth       int       `json:"depth"`
	ContentHash string    `json:"contentHash"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// Validate returns an error if the artifact contains invalid fields.
func (a *PageArtifact) Validate() error {
	if a.SessionID == "" {
		return Errorf(EINVALID, "artifact session ID required")
	}
	if a.Source == "" {
		return Errorf(EINVALID, "artifact source required")
	}
	if a.Depth < 0 {
		return Errorf(EINVALID, "artifact depth must be non-negative")
	}
	return nil
}

// ArtifactStore persists page artifacts, one write-once entry per page or
// upload, grouped under a session.
type ArtifactStore interface {
	// SaveArtifact writes an artifact. It fails if an artifact with the
	// same name already exists in the session.
	SaveArtifact(ctx context.Context, artifact *PageArtifact) error

	// ListArtifacts returns all artifacts of a session, ordered by name
	// so repeated listings are deterministic.
	// Returns ENOTFOUND if the session directory does not exist.
	ListArtifacts(ctx context.Context, sessionID string) ([]*PageArtifact, error)
}
