// Package text turns raw chapter markup into plain text and splits it into
// synthesis-sized and display-sized segments.
package text

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Normalize strips every tag and attribute from markup and returns the
// remaining text in NFC form with whitespace collapsed.
// It never fails; unparseable input falls back to a regex strip.
func Normalize(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return finish(stripFallback(markup))
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return finish(buf.String())
}

func finish(s string) string {
	s = norm.NFC.String(s)
	return strings.TrimSpace(collapseWhitespace(s))
}

// extractText walks the node tree collecting text nodes. Block elements are
// padded with spaces so adjacent paragraphs don't run together.
func extractText(n *html.Node, buf *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
		if isBlock(n.Data) {
			buf.WriteByte(' ')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}

	if n.Type == html.ElementNode && isBlock(n.Data) {
		buf.WriteByte(' ')
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "ul", "ol", "blockquote", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "tr", "td", "hr", "pre":
		return true
	}
	return false
}

var (
	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

func stripFallback(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	return html.UnescapeString(s)
}

func collapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, " ")
}
