package adapters

import (
	"github.com/ppiankov/clauseguard/internal/extract"
	"golang.org/x/net/html"
)

// GenericAdapter is the fallback adapter for unknown pages
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(url string, contentType string) bool {
	return true
}

// Extract returns all visible text of the body
func (a *GenericAdapter) Extract(doc *html.Node, url string) (*extract.Page, error) {
	root := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "body"
	})
	if root == nil {
		root = doc
	}

	return &extract.Page{
		Title: extract.Title(doc),
		Text:  extract.VisibleText(root),
	}, nil
}
