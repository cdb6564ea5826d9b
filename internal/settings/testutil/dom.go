package testutil

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// ParseHTML parses body into a goquery document for assertions.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err, "parse html")
	return doc
}

// Attr returns the first matching element's attribute, failing when absent.
func Attr(t testing.TB, doc *goquery.Document, selector, name string) string {
	t.Helper()

	value, ok := doc.Find(selector).First().Attr(name)
	require.True(t, ok, "%s[%s] not found", selector, name)
	return value
}
