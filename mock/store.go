package mock

import (
	"context"
	"sync"

	"github.com/iamtutumo/agentkb"
)

var _ agentkb.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore is an in-memory implementation of agentkb.ArtifactStore.
// It is safe for concurrent use and keeps save order.
type ArtifactStore struct {
	mu        sync.Mutex
	artifacts map[string][]*agentkb.PageArtifact
}

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{artifacts: make(map[string][]*agentkb.PageArtifact)}
}

func (s *ArtifactStore) SaveArtifact(ctx context.Context, artifact *agentkb.PageArtifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.artifacts[artifact.SessionID] {
		if existing.Name == artifact.Name {
			return agentkb.Errorf(agentkb.EINVALID, "artifact %q already exists", artifact.Name)
		}
	}
	s.artifacts[artifact.SessionID] = append(s.artifacts[artifact.SessionID], artifact)
	return nil
}

func (s *ArtifactStore) ListArtifacts(ctx context.Context, sessionID string) ([]*agentkb.PageArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.artifacts[sessionID]
	if !ok {
		return nil, agentkb.Errorf(agentkb.ENOTFOUND, "session %q not found", sessionID)
	}
	return append([]*agentkb.PageArtifact(nil), list...), nil
}

var _ agentkb.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of agentkb.RecordStore.
// Writes are once-per-key; save order is preserved.
type RecordStore struct {
	mu      sync.Mutex
	keys    map[string]map[string]bool
	records map[string][]*agentkb.Stage1Record
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		keys:    make(map[string]map[string]bool),
		records: make(map[string][]*agentkb.Stage1Record),
	}
}

func (s *RecordStore) SaveRecord(ctx context.Context, sessionID, artifactName string, record *agentkb.Stage1Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[sessionID] == nil {
		s.keys[sessionID] = make(map[string]bool)
	}
	if s.keys[sessionID][artifactName] {
		return agentkb.Errorf(agentkb.EINVALID, "record for %q already exists", artifactName)
	}
	s.keys[sessionID][artifactName] = true
	s.records[sessionID] = append(s.records[sessionID], record)
	return nil
}

func (s *RecordStore) ListRecords(ctx context.Context, sessionID string) ([]*agentkb.Stage1Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.records[sessionID]
	if !ok {
		return nil, agentkb.Errorf(agentkb.ENOTFOUND, "session %q has no records", sessionID)
	}
	return append([]*agentkb.Stage1Record(nil), list...), nil
}

var _ agentkb.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore is a mock implementation of agentkb.KnowledgeStore.
type KnowledgeStore struct {
	SaveKnowledgeBaseFn func(ctx context.Context, sessionID string, kb *agentkb.KnowledgeBase) (string, error)
	LoadKnowledgeBaseFn func(ctx context.Context, sessionID string) (*agentkb.KnowledgeBase, error)
}

func (s *KnowledgeStore) SaveKnowledgeBase(ctx context.Context, sessionID string, kb *agentkb.KnowledgeBase) (string, error) {
	return s.SaveKnowledgeBaseFn(ctx, sessionID, kb)
}

func (s *KnowledgeStore) LoadKnowledgeBase(ctx context.Context, sessionID string) (*agentkb.KnowledgeBase, error) {
	return s.LoadKnowledgeBaseFn(ctx, sessionID)
}
