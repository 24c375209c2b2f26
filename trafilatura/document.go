package trafilatura

import (
	"mime"
	"strings"

	"github.com/iamtutumo/agentkb"
	"github.com/markusmobius/go-trafilatura"
)

// Ensure DocumentParser implements agentkb.DocumentParser at compile time.
var _ agentkb.DocumentParser = (*DocumentParser)(nil)

// DocumentParser converts uploaded files to plain text for stage-one
// extraction. Plain text and Markdown pass through unchanged; HTML goes
// through boilerplate removal first.
type DocumentParser struct{}

// NewDocumentParser creates a new DocumentParser.
func NewDocumentParser() *DocumentParser {
	return &DocumentParser{}
}

// Parse returns the plain text of the file. Returns EINVALID for
// unsupported MIME types.
func (p *DocumentParser) Parse(data []byte, mimeType string) (string, error) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", agentkb.Errorf(agentkb.EINVALID, "invalid MIME type %q: %v", mimeType, err)
	}

	switch mt {
	case "text/plain", "text/markdown":
		return string(data), nil
	case "text/html", "application/xhtml+xml":
		return parseHTML(data)
	default:
		return "", agentkb.Errorf(agentkb.EINVALID, "unsupported document type %q", mt)
	}
}

func parseHTML(data []byte) (string, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", agentkb.Errorf(agentkb.EINVALID, "empty HTML document")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}

	result, err := trafilatura.Extract(strings.NewReader(string(data)), opts)
	if err != nil {
		return "", err
	}

	text := result.ContentText
	if result.Metadata.Title != "" {
		text = result.Metadata.Title + "\n\n" + text
	}
	return text, nil
}
