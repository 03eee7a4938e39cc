package articles

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/mozillazg/go-unidecode"
)

const excerptRunes = 200

// Excerpt returns the visible text of an HTML body, whitespace collapsed and
// cut at a word boundary so it fits in excerptRunes runes plus an ellipsis.
func Excerpt(bodyHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	doc.Find("p, div, br, li, tr, td, h1, h2, h3, h4, h5, h6, blockquote").AfterHtml(" ")
	text := strings.Join(strings.Fields(doc.Text()), " ")

	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	cut := runes[:excerptRunes]
	if !unicode.IsSpace(runes[excerptRunes]) {
		if i := lastSpace(cut); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimSpace(string(cut)) + "…"
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return -1
}

// Slugify derives a URL slug from a title, transliterating non-Latin text.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(unidecode.Unidecode(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
