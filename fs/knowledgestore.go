package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iamtutumo/agentkb"
)

// Ensure KnowledgeStore implements agentkb.KnowledgeStore at compile time.
var _ agentkb.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore persists final knowledge-base documents as
// baseDir/{sessionID}/final_agent_{timestamp}.json, one file per synthesis
// run.
type KnowledgeStore struct {
	baseDir string

	// Now is the clock used for output timestamps; nil means time.Now.
	Now func() time.Time
}

// NewKnowledgeStore creates a KnowledgeStore rooted at baseDir.
func NewKnowledgeStore(baseDir string) *KnowledgeStore {
	return &KnowledgeStore{baseDir: baseDir}
}

func (s *KnowledgeStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SaveKnowledgeBase writes the document and returns its path.
func (s *KnowledgeStore) SaveKnowledgeBase(ctx context.Context, sessionID string, kb *agentkb.KnowledgeBase) (string, error) {
	if !agentkb.ValidSessionID(sessionID) {
		return "", agentkb.Errorf(agentkb.EINVALID, "invalid session ID %q", sessionID)
	}
	if err := kb.Validate(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	timestamp := s.now().UTC().Format(agentkb.SessionIDFormat)
	path := filepath.Join(dir, "final_agent_"+timestamp+".json")

	data, err := json.MarshalIndent(kb, "", "  ")
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// LoadKnowledgeBase returns the most recent document of a session.
// Returns ENOTFOUND if none has been written.
func (s *KnowledgeStore) LoadKnowledgeBase(ctx context.Context, sessionID string) (*agentkb.KnowledgeBase, error) {
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

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, "final_agent_") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, agentkb.Errorf(agentkb.ENOTFOUND, "session %q has no knowledge base", sessionID)
	}

	// Timestamped names sort chronologically; the last one is newest.
	sort.Strings(names)
	data, err := os.ReadFile(filepath.Join(dir, names[len(names)-1]))
	if err != nil {
		return nil, err
	}

	var kb agentkb.KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, agentkb.Errorf(agentkb.EINTERNAL, "knowledge base %q is corrupt: %v", names[len(names)-1], err)
	}
	return &kb, nil
}
