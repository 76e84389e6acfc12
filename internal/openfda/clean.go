package openfda

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	abbrevRe     = regexp.MustCompile(`\b(Dr|Mr|Mrs|Ms|vs|etc|approx|max|min)\b([^.]|$)`)
	numListRe    = regexp.MustCompile(`(\d+)\s*\)`)
	bulletRe     = regexp.MustCompile(`([•●○])`)
)

// Clean normalizes raw label text: strips embedded markup, collapses
// whitespace, drops control characters, restores dots after common
// abbreviations and reflows numbered/bulleted lists onto their own lines.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	if htmlTagRe.MatchString(text) {
		text = stripHTML(text)
	}

	text = whitespaceRe.ReplaceAllString(text, " ")

	text = strings.Map(func(r rune) rune {
		if r != '\n' && (unicode.IsControl(r) || (r >= 0x7f && r <= 0x9f)) {
			return -1
		}
		return r
	}, text)

	text = abbrevRe.ReplaceAllString(text, "$1.$2")
	text = numListRe.ReplaceAllString(text, "\n$1)")
	text = bulletRe.ReplaceAllString(text, "\n$1")

	return strings.TrimSpace(text)
}

// stripHTML flattens markup to its visible text. Some openFDA label fields
// carry inline tables and formatting tags.
func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(*html.Node, bool)

	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				skip = true
			}
		}

		if n.Type == html.TextNode && !skip {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				b.WriteString(t)
				b.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)

	return strings.TrimSpace(b.String())
}
