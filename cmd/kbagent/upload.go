package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/iamtutumo/agentkb"
)

// Run executes the upload command.
func (c *UploadCmd) Run(deps *Dependencies) error {
	session := &agentkb.Session{
		ID:      agentkb.NewSessionID(time.Now()),
		PageCap: deps.Config.PageCap,
		Started: time.Now().UTC(),
	}

	if err := deps.Ledger.StartSession(deps.Ctx, session); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", agentkb.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Session %s\n", session.ID)

	maxBytes := int64(deps.Config.MaxUploadMB) << 20

	var saved int
	for _, path := range c.Files {
		name := filepath.Base(path)
		if err := uploadFile(deps, session, path, maxBytes); err != nil {
			fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", name, agentkb.ErrorMessage(err))
			_ = deps.Ledger.RecordItem(deps.Ctx, session.ID, name, 0, agentkb.StatusFailed, agentkb.ErrorMessage(err))
			continue
		}
		saved++
		_ = deps.Ledger.RecordItem(deps.Ctx, session.ID, name, 0, agentkb.StatusFetched, "")
	}

	fmt.Fprintf(deps.Stdout, "  Saved %d of %d files\n", saved, len(c.Files))
	if saved == 0 {
		return fmt.Errorf("no files uploaded")
	}

	fmt.Fprintf(deps.Stdout, "Next: kbagent extract %s\n", session.ID)
	return nil
}

// uploadFile parses one document and stores it as a session artifact.
func uploadFile(deps *Dependencies, session *agentkb.Session, path string, maxBytes int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return agentkb.Errorf(agentkb.EINVALID, "cannot read %s: %v", path, err)
	}
	if info.Size() > maxBytes {
		return agentkb.Errorf(agentkb.EINVALID, "file exceeds %d MB upload cap", deps.Config.MaxUploadMB)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return agentkb.Errorf(agentkb.EINVALID, "cannot read %s: %v", path, err)
	}

	text, err := deps.Parser.Parse(data, mimeTypeFor(path))
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	artifact := &agentkb.PageArtifact{
		SessionID:   session.ID,
		Source:      name,
		Name:        agentkb.SourceKey(name),
		Title:       name,
		Text:        text,
		Depth:       0,
		ContentHash: strconv.FormatUint(xxhash.Sum64String(text), 16),
		FetchedAt:   time.Now().UTC(),
	}
	return deps.Artifacts.SaveArtifact(deps.Ctx, artifact)
}

// mimeTypeFor maps a file path to a MIME type. The markdown extensions are
// handled explicitly since not every platform registers them.
func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	}
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
