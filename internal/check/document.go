// internal/check/document.go
package check

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed snapshot of a page's DOM. Checks that count or iterate
// elements run against a Document so they never touch the browser.
type Document struct {
	doc *goquery.Document
}

// Image describes one <img> element in document order.
type Image struct {
	Index  int
	Src    string
	Alt    string
	HasAlt bool
}

// ParseDocument parses serialized page HTML.
func ParseDocument(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Count returns the number of elements matching a CSS selector.
func (d *Document) Count(selector string) int {
	return d.doc.Find(selector).Length()
}

// Title returns the trimmed text of the first <title>.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Attr returns the attribute of the first element matching selector.
func (d *Document) Attr(selector, attr string) (string, bool) {
	return d.doc.Find(selector).First().Attr(attr)
}

// Images lists every <img>, recording whether the alt attribute exists at all.
func (d *Document) Images() []Image {
	var images []Image
	d.doc.Find("img").Each(func(i int, s *goquery.Selection) {
		alt, ok := s.Attr("alt")
		src, _ := s.Attr("src")
		images = append(images, Image{Index: i, Src: src, Alt: alt, HasAlt: ok})
	})
	return images
}
