package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RawPage is a fetched document plus its derived plain text. It is owned by
// the adapter invocation that produced it and discarded after extraction.
type RawPage struct {
	URL  string
	Doc  *goquery.Document
	Text string
}

// NewRawPage parses an HTML body into a RawPage. url must be the resolved
// URL after redirects.
func NewRawPage(url string, body []byte) (*RawPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &RawPage{
		URL:  url,
		Doc:  doc,
		Text: pageText(doc),
	}, nil
}

// pageText flattens the body into whitespace-normalized text with scripts
// and styles removed, for the regex extraction strategies.
func pageText(doc *goquery.Document) string {
	clone := doc.Find("body").Clone()
	clone.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}
