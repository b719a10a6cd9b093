package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripTags reduces an HTML fragment to plain text with collapsed
// whitespace. On parse failure the raw input is returned unchanged:
// losing markup stripping is better than losing the content.
func StripTags(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
