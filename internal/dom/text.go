package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText puts rendered text in the form used for matching:
// NFC normalised, whitespace runs collapsed, trimmed.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// ContainsText reports whether haystack renders needle, after normalising both.
func ContainsText(haystack, needle string) bool {
	return strings.Contains(NormalizeText(haystack), NormalizeText(needle))
}

// skipText lists elements whose contents never render as text.
var skipText = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
}

// renderedText concatenates the text nodes under n, skipping non-rendered
// subtrees. Element boundaries count as whitespace so that adjacent blocks
// do not fuse into one word.
func renderedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipText[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && !inline[n.Data] {
			b.WriteByte(' ')
		}
	}
	walk(n)
	return NormalizeText(b.String())
}

// inline elements do not introduce a word break around their text.
var inline = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "dfn": true, "em": true, "i": true, "kbd": true,
	"label": true, "mark": true, "q": true, "s": true, "samp": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "time": true, "u": true,
	"var": true,
}
