package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Resolve returns every element in the snapshot matching loc, in document
// order. An empty match yields a *NotFoundError; a malformed selector yields
// a *SelectorError.
func Resolve(s *Snapshot, loc Locator) ([]ElementHandle, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	var nodes []*html.Node
	var err error
	switch loc.Mode {
	case ModeCSS:
		nodes, err = matchCSS(s, loc.Selector)
	case ModeText:
		nodes, err = matchText(s, loc)
	}
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &NotFoundError{Locator: loc}
	}

	handles := make([]ElementHandle, len(nodes))
	for i, n := range nodes {
		handles[i] = newHandle(n, s.generation)
	}
	return handles, nil
}

// First returns the first element matching loc in document order.
func First(s *Snapshot, loc Locator) (ElementHandle, error) {
	handles, err := Resolve(s, loc)
	if err != nil {
		return ElementHandle{}, err
	}
	return handles[0], nil
}

func matchCSS(s *Snapshot, selector string) ([]*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	var out []*html.Node
	for _, n := range elements(s.root(), false) {
		if sel.Match(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// matchText finds the deepest elements whose rendered text contains the
// locator text. An element is dropped when one of its descendants also
// matches, which makes the first result the element that renders the text.
func matchText(s *Snapshot, loc Locator) ([]*html.Node, error) {
	needle := NormalizeText(loc.Selector)

	var filter func(*html.Node) bool
	if loc.Filter != "" {
		sel, err := compile(loc.Filter)
		if err != nil {
			return nil, err
		}
		filter = sel.Match
	}

	var matched []*html.Node
	for _, n := range elements(s.root(), true) {
		if filter != nil && !filter(n) {
			continue
		}
		if strings.Contains(renderedText(n), needle) {
			matched = append(matched, n)
		}
	}

	shadowed := make(map[*html.Node]bool)
	for _, n := range matched {
		for p := n.Parent; p != nil; p = p.Parent {
			if shadowed[p] {
				break
			}
			shadowed[p] = true
		}
	}

	out := matched[:0]
	for _, n := range matched {
		if !shadowed[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

// root returns the document node of the snapshot.
func (s *Snapshot) root() *html.Node {
	if len(s.doc.Nodes) == 0 {
		return nil
	}
	return s.doc.Nodes[0]
}

// elements lists element nodes under root in document order. When
// renderedOnly is set, subtrees that never render text are skipped.
func elements(root *html.Node, renderedOnly bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if renderedOnly && skipText[n.Data] {
				return
			}
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}
