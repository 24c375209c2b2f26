// Package fs provides file-based session storage for the pipeline's
// intermediate and final outputs. Each session owns one directory named by
// its sortable timestamp identifier; no cross-session references exist.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iamtutumo/agentkb"
)

// Ensure ArtifactStore implements agentkb.ArtifactStore at compile time.
var _ agentkb.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore persists raw page artifacts as one text file per page
// under baseDir/{sessionID}. Writes are write-once: saving an artifact
// whose name already exists in the session fails.
type ArtifactStore struct {
	baseDir string
}

// NewArtifactStore creates an ArtifactStore rooted at baseDir.
func NewArtifactStore(baseDir string) *ArtifactStore {
	return &ArtifactStore{baseDir: baseDir}
}

// SaveArtifact writes the artifact to {sessionID}/{name}.txt with a small
// frontmatter header preserving traceability to the source. The write goes
// through a temp file and rename so readers never see partial content.
func (s *ArtifactStore) SaveArtifact(ctx context.Context, artifact *agentkb.PageArtifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}
	if !agentkb.ValidSessionID(artifact.SessionID) {
		return agentkb.Errorf(agentkb.EINVALID, "invalid session ID %q", artifact.SessionID)
	}

	dir := filepath.Join(s.baseDir, artifact.SessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, artifact.Name+".txt")
	if _, err := os.Stat(path); err == nil {
		return agentkb.Errorf(agentkb.EINVALID, "artifact %q already exists in session %s", artifact.Name, artifact.SessionID)
	}

	return writeFileAtomic(path, []byte(formatArtifact(artifact)))
}

// ListArtifacts returns all artifacts of a session, ordered by name.
// Returns ENOTFOUND if the session directory does not exist.
func (s *ArtifactStore) ListArtifacts(ctx context.Context, sessionID string) ([]*agentkb.PageArtifact, error) {
	if !agentkb.ValidSessionID(sessionID) {
		return nil, agentkb.Errorf(agentkb.EINVALID, "invalid session ID %q", sessionID)
	}

	dir := filepath.Join(s.baseDir, sessionID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, agentkb.Errorf(agentkb.ENOTFOUND, "session %q not found", sessionID)
		}
		return nil, err
	}

	var artifacts []*agentkb.PageArtifact
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		artifact, err := parseArtifact(sessionID, strings.TrimSuffix(entry.Name(), ".txt"), string(data))
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

// headerSanitizer strips line breaks from frontmatter values. A title
// scraped from a hostile page could otherwise inject extra header lines
// and corrupt the artifact on read-back.
var headerSanitizer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// formatArtifact renders an artifact with YAML frontmatter followed by the
// cleaned text.
func formatArtifact(artifact *agentkb.PageArtifact) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source: %s\n", headerSanitizer.Replace(artifact.Source))
	fmt.Fprintf(&b, "title: %s\n", headerSanitizer.Replace(artifact.Title))
	fmt.Fprintf(&b, "depth: %d\n", artifact.Depth)
	fmt.Fprintf(&b, "contentHash: %s\n", artifact.ContentHash)
	fmt.Fprintf(&b, "fetched: %s\n", artifact.FetchedAt.UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")
	b.WriteString(artifact.Text)
	return b.String()
}

// parseArtifact reads back the frontmatter format written by
// formatArtifact.
func parseArtifact(sessionID, name, content string) (*agentkb.PageArtifact, error) {
	rest, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		return nil, agentkb.Errorf(agentkb.EINTERNAL, "artifact %q has no frontmatter", name)
	}
	header, body, ok := strings.Cut(rest, "\n---\n\n")
	if !ok {
		return nil, agentkb.Errorf(agentkb.EINTERNAL, "artifact %q has malformed frontmatter", name)
	}

	artifact := &agentkb.PageArtifact{SessionID: sessionID, Name: name, Text: body}
	for _, line := range strings.Split(header, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "source":
			artifact.Source = value
		case "title":
			artifact.Title = value
		case "depth":
			depth, err := strconv.Atoi(value)
			if err != nil {
				return nil, agentkb.Errorf(agentkb.EINTERNAL, "artifact %q has invalid depth %q", name, value)
			}
			artifact.Depth = depth
		case "contentHash":
			artifact.ContentHash = value
		case "fetched":
			fetched, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, agentkb.Errorf(agentkb.EINTERNAL, "artifact %q has invalid fetched time %q", name, value)
			}
			artifact.FetchedAt = fetched
		}
	}
	return artifact, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
