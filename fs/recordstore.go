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

// Ensure RecordStore implements agentkb.RecordStore at compile time.
var _ agentkb.RecordStore = (*RecordStore)(nil)

// RecordStore persists stage-one records as JSON files under
// baseDir/{sessionID}/stage1, one file per processed artifact named
// {artifactName}_{timestamp}.json so re-runs never overwrite earlier
// records.
type RecordStore struct {
	baseDir string

	// Now is the clock used for record timestamps; nil means time.Now.
	Now func() time.Time
}

// NewRecordStore creates a RecordStore rooted at baseDir.
func NewRecordStore(baseDir string) *RecordStore {
	return &RecordStore{baseDir: baseDir}
}

func (s *RecordStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SaveRecord writes a record keyed by the originating artifact name plus a
// timestamp.
func (s *RecordStore) SaveRecord(ctx context.Context, sessionID, artifactName string, record *agentkb.Stage1Record) error {
	if !agentkb.ValidSessionID(sessionID) {
		return agentkb.Errorf(agentkb.EINVALID, "invalid session ID %q", sessionID)
	}
	if err := record.Validate(); err != nil {
		return err
	}

	dir := filepath.Join(s.baseDir, sessionID, "stage1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	timestamp := s.now().UTC().Format(agentkb.SessionIDFormat)
	path := filepath.Join(dir, artifactName+"_"+timestamp+".json")
	if _, err := os.Stat(path); err == nil {
		return agentkb.Errorf(agentkb.EINVALID, "record %q already exists", filepath.Base(path))
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ListRecords returns all records of a session ordered by filename, which
// sorts by artifact name then timestamp. Returns ENOTFOUND if the session
// has no records.
func (s *RecordStore) ListRecords(ctx context.Context, sessionID string) ([]*agentkb.Stage1Record, error) {
	if !agentkb.ValidSessionID(sessionID) {
		return nil, agentkb.Errorf(agentkb.EINVALID, "invalid session ID %q", sessionID)
	}

	dir := filepath.Join(s.baseDir, sessionID, "stage1")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, agentkb.Errorf(agentkb.ENOTFOUND, "session %q has no records", sessionID)
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, agentkb.Errorf(agentkb.ENOTFOUND, "session %q has no records", sessionID)
	}
	sort.Strings(names)

	records := make([]*agentkb.Stage1Record, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var record agentkb.Stage1Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, agentkb.Errorf(agentkb.EINTERNAL, "record %q is corrupt: %v", name, err)
		}
		records = append(records, &record)
	}
	return records, nil
}
