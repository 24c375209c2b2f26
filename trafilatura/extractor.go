package trafilatura

import (
	"bytes"
	"strings"

	"github.com/iamtutumo/agentkb"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements agentkb.Extractor at compile time.
var _ agentkb.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to strip boilerplate (navigation, footer,
// sidebars, ads) from fetched pages and keep the main content.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the page title and main content.
func (e *Extractor) Extract(rawHTML string) (*agentkb.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, agentkb.Errorf(agentkb.EINVALID, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return nil, err
	}

	var contentHTML string
	if result.ContentNode != nil {
		contentHTML, err = renderNode(result.ContentNode)
		if err != nil {
			return nil, err
		}
	}

	return &agentkb.ExtractResult{
		Title:       result.Metadata.Title,
		ContentHTML: contentHTML,
	}, nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
