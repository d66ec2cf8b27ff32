package dom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Annotation attributes written by drivers onto snapshot markup.
const (
	AttrRef        = "data-uispec-ref"
	AttrVisible    = "data-uispec-visible"
	AttrObstructed = "data-uispec-obstructed"
)

// Snapshot is an immutable view of the page at one point in time.
type Snapshot struct {
	generation int64
	doc        *goquery.Document
}

// Parse builds a snapshot from annotated page markup.
// Generation identifies the page state the markup was taken from; handles
// resolved from this snapshot carry it so drivers can detect staleness.
func Parse(markup string, generation int64) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Snapshot{generation: generation, doc: doc}, nil
}

// Generation returns the page generation this snapshot was taken at.
func (s *Snapshot) Generation() int64 {
	return s.generation
}

// Document exposes the parsed markup for read-only inspection.
func (s *Snapshot) Document() *goquery.Document {
	return s.doc
}

// ElementHandle is a transient reference to a node in a snapshot.
// It owns nothing and is only meaningful for the snapshot generation it
// was resolved from.
type ElementHandle struct {
	Ref        int               `json:"ref"`
	Generation int64             `json:"generation"`
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	Value      string            `json:"value,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	Visible    bool              `json:"visible"`
	Obstructed bool              `json:"obstructed"`
}

// Actionable reports whether a user could interact with the element:
// it renders a box and nothing covers its centre.
func (h ElementHandle) Actionable() bool {
	return h.Visible && !h.Obstructed
}

// String renders a short tag description, e.g. <div class="label">.
func (h ElementHandle) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(h.Tag)
	for _, key := range []string{"id", "class"} {
		if v, ok := h.Attrs[key]; ok && v != "" {
			fmt.Fprintf(&b, " %s=%q", key, v)
		}
	}
	b.WriteString(">")
	return b.String()
}

// newHandle reads the annotations off n and captures its rendered state.
func newHandle(n *html.Node, generation int64) ElementHandle {
	h := ElementHandle{
		Ref:        -1,
		Generation: generation,
		Tag:        n.Data,
		Text:       renderedText(n),
		Visible:    true,
		Attrs:      make(map[string]string),
	}
	for _, a := range n.Attr {
		switch a.Key {
		case AttrRef:
			if ref, err := strconv.Atoi(a.Val); err == nil {
				h.Ref = ref
			}
		case AttrVisible:
			h.Visible = a.Val != "false"
		case AttrObstructed:
			h.Obstructed = a.Val == "true"
		case "value":
			h.Value = a.Val
			h.Attrs[a.Key] = a.Val
		default:
			h.Attrs[a.Key] = a.Val
		}
	}
	return h
}
