package adapters

import (
	"net/url"
	"strings"

	"github.com/ppiankov/clauseguard/internal/extract"
	"golang.org/x/net/html"
)

// LegalAdapter reads terms of service, privacy policies and similar pages,
// keeping only the main document body.
type LegalAdapter struct {
	BaseAdapter
	pathMarkers  []string
	blockMarkers []string
}

// NewLegalAdapter creates a new legal document adapter
func NewLegalAdapter() *LegalAdapter {
	return &LegalAdapter{
		pathMarkers: []string{
			"terms", "tos", "privacy", "legal", "policy", "policies",
			"eula", "conditions", "agreement", "gdpr", "cookie",
		},
		blockMarkers: []string{
			"terms", "privacy", "policy", "legal", "agreement",
			"content", "article", "document",
		},
	}
}

// Name returns the adapter name
func (a *LegalAdapter) Name() string {
	return "legal"
}

// CanHandle checks if the URL path looks like a legal document
func (a *LegalAdapter) CanHandle(rawURL string, contentType string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, marker := range a.pathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// Extract reads the main content area, falling back to the largest
// legal-looking container and finally to the whole document
func (a *LegalAdapter) Extract(doc *html.Node, rawURL string) (*extract.Page, error) {
	mainContent := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "main"
	})

	if mainContent == nil {
		mainContent = a.FindFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode &&
				(n.Data == "article" || a.GetAttribute(n, "role") == "main")
		})
	}

	if mainContent == nil {
		mainContent = a.largestMarkedBlock(doc)
	}

	if mainContent == nil {
		mainContent = doc
	}

	return &extract.Page{
		Title: extract.Title(doc),
		Text:  extract.VisibleText(mainContent),
	}, nil
}

// largestMarkedBlock picks the div/section whose id or class mentions a
// legal marker and that holds the most text
func (a *LegalAdapter) largestMarkedBlock(doc *html.Node) *html.Node {
	candidates := a.FindAll(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || (n.Data != "div" && n.Data != "section") {
			return false
		}
		label := strings.ToLower(a.GetAttribute(n, "id") + " " + a.GetAttribute(n, "class"))
		for _, marker := range a.blockMarkers {
			if strings.Contains(label, marker) {
				return true
			}
		}
		return false
	})

	var (
		best    *html.Node
		bestLen int
	)
	for _, node := range candidates {
		if n := len(extract.VisibleText(node)); n > bestLen {
			best, bestLen = node, n
		}
	}
	return best
}
