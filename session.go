package agentkb

import (
	"regexp"
	"time"
)

// SessionIDFormat is the timestamp layout used for session identifiers.
// Lexicographic order equals chronological order.
const SessionIDFormat = "20060102_150405"

var sessionIDRe = regexp.MustCompile(`^\d{8}_\d{6}$`)

// Session is one bounded execution of the crawler (or upload handler)
// against one root URL or file batch. All intermediate state is keyed by
// the session ID; no cross-session references exist.
type Session struct {
	ID       string    `json:"id"`
	RootURL  string    `json:"rootUrl"`
	MaxDepth int       `json:"maxDepth"`
	PageCap  int       `json:"pageCap"`
	Started  time.Time `json:"started"`
}

// NewSessionID derives a sortable session identifier from a timestamp.
func NewSessionID(t time.Time) string {
	return t.UTC().Format(SessionIDFormat)
}

// ValidSessionID reports whether id has the expected timestamp shape.
func ValidSessionID(id string) bool {
	return sessionIDRe.MatchString(id)
}

// Validate returns an error if the session contains invalid fields.
func (s *Session) Validate() error {
	if s.ID == "" {
		return Errorf(EINVALID, "session ID required")
	}
	if s.MaxDepth < 0 {
		return Errorf(ECONFIG, "max depth must be non-negative, got %d", s.MaxDepth)
	}
	if s.PageCap < 1 {
		return Errorf(ECONFIG, "page cap must be at least 1, got %d", s.PageCap)
	}
	return nil
}
