// Package sim provides an in-memory driver.Page.
//
// A sim Page serves fixed markup per route and reacts to dispatched actions
// through handlers registered against CSS selectors, with DOM-style
// bubbling from the target to its ancestors. Handlers mutate the live
// document through goquery. Changes can be deferred by a number of
// snapshots to model asynchronous rendering, which lets tests exercise the
// poller deterministically without a browser.
//
// Visibility is derived from the markup: the hidden attribute, inline
// display:none or visibility:hidden, and data-sim-size="0" hide an element
// and its subtree. data-sim-obstructed marks an element (and its subtree)
// as covered by something else.
package sim

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/roach88/uispec/internal/dom"
	"github.com/roach88/uispec/internal/driver"
)

// Markup attributes the sim page understands.
const (
	AttrSize       = "data-sim-size"
	AttrObstructed = "data-sim-obstructed"
)

const blankPage = "<html><head></head><body></body></html>"

// Handler reacts to a DOM event.
type Handler func(e *Event)

// Event is passed to handlers while an action is being dispatched.
type Event struct {
	// Name is the DOM event name, e.g. "click" or "input".
	Name string
	// Action is the action being dispatched.
	Action driver.Action
	// Target is the element the action was dispatched to.
	Target *goquery.Selection
	// Current is the element the handler was registered on.
	Current *goquery.Selection
	// Doc is the live document.
	Doc *goquery.Document

	page    *Page
	stopped bool
}

// Defer runs fn just before the n-th following snapshot is taken.
func (e *Event) Defer(n int, fn func(doc *goquery.Document)) {
	e.page.pending = append(e.page.pending, &change{remaining: n, fn: fn})
}

// StopPropagation prevents ancestors from seeing the event.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Dispatched records one action the page received.
type Dispatched struct {
	Ref    int
	Tag    string
	Action driver.Action
}

type handler struct {
	event string
	match cascadia.Selector
	fn    Handler
}

type change struct {
	remaining int
	fn        func(doc *goquery.Document)
}

// Page is an in-memory page. It is safe for concurrent use.
type Page struct {
	mu          sync.Mutex
	routes      map[string]string
	onLoad      []Handler
	handlers    []handler
	doc         *goquery.Document
	generation  int64
	pending     []*change
	snapshots   int
	navigations []string
	dispatched  []Dispatched
	closed      bool
}

var _ driver.Page = (*Page)(nil)

// New creates a page with no routes showing an empty document.
func New() *Page {
	return &Page{
		routes: make(map[string]string),
		doc:    mustParse(blankPage),
	}
}

// Route serves markup at path.
func (p *Page) Route(path, markup string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[normalizePath(path)] = markup
	return p
}

// OnLoad registers fn to run after every navigation, with the fresh
// document as both Target and Current.
func (p *Page) OnLoad(fn Handler) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLoad = append(p.onLoad, fn)
	return p
}

// On registers fn for event on elements matching selector. It panics on a
// malformed selector since handlers are fixed test setup.
func (p *Page) On(event, selector string, fn Handler) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler{
		event: event,
		match: cascadia.MustCompile(selector),
		fn:    fn,
	})
	return p
}

// Schedule runs fn just before the n-th following snapshot is taken.
func (p *Page) Schedule(n int, fn func(doc *goquery.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, &change{remaining: n, fn: fn})
}

// Mutate applies fn to the live document immediately.
func (p *Page) Mutate(fn func(doc *goquery.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
	p.generation++
}

// Navigate loads the markup routed at path, dropping pending changes.
func (p *Page) Navigate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return driver.ErrClosed
	}

	path = normalizePath(path)
	markup, ok := p.routes[path]
	if !ok {
		return fmt.Errorf("sim: no route for %q", path)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("sim: parse %q: %w", path, err)
	}

	p.doc = doc
	p.pending = nil
	p.generation++
	p.navigations = append(p.navigations, path)

	for _, fn := range p.onLoad {
		fn(&Event{Name: "load", Target: doc.Selection, Current: doc.Selection, Doc: doc, page: p})
	}
	return nil
}

// Snapshot applies due changes and returns the annotated document.
func (p *Page) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, driver.ErrClosed
	}

	p.snapshots++
	p.applyDue()

	markup, err := annotate(p.root())
	if err != nil {
		return nil, err
	}
	return dom.Parse(markup, p.generation)
}

// Dispatch fires the events of a on the element behind h.
func (p *Page) Dispatch(ctx context.Context, h dom.ElementHandle, a driver.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return driver.ErrClosed
	}

	if h.Generation != p.generation {
		return fmt.Errorf("%w: resolved at generation %d, page is at %d", driver.ErrStale, h.Generation, p.generation)
	}
	target := elementByRef(p.root(), h.Ref)
	if target == nil || target.Data != h.Tag {
		return fmt.Errorf("%w: no <%s> with ref %d", driver.ErrStale, h.Tag, h.Ref)
	}

	p.dispatched = append(p.dispatched, Dispatched{Ref: h.Ref, Tag: h.Tag, Action: a})
	if a.Kind == driver.ActionType {
		setAttr(target, "value", attr(target, "value")+a.Text)
	}
	for _, name := range a.Events() {
		p.fire(name, target, a)
	}
	p.generation++
	return nil
}

// Close marks the page closed.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Navigations returns the paths navigated to, in order.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Dispatched returns the actions received, in order.
func (p *Page) Dispatched() []Dispatched {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Dispatched(nil), p.dispatched...)
}

// Snapshots returns how many snapshots have been taken.
func (p *Page) Snapshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots
}

// Generation returns the current page generation.
func (p *Page) Generation() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// HTML renders the live document without annotations.
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b bytes.Buffer
	if err := html.Render(&b, p.root()); err != nil {
		return ""
	}
	return b.String()
}

func (p *Page) root() *html.Node {
	return p.doc.Nodes[0]
}

// applyDue runs pending changes whose countdown reached zero, in the order
// they were scheduled.
func (p *Page) applyDue() {
	var keep []*change
	var due []*change
	for _, c := range p.pending {
		c.remaining--
		if c.remaining <= 0 {
			due = append(due, c)
		} else {
			keep = append(keep, c)
		}
	}
	p.pending = keep
	for _, c := range due {
		c.fn(p.doc)
		p.generation++
	}
}

// fire delivers event name to target and then to each ancestor.
func (p *Page) fire(name string, target *html.Node, a driver.Action) {
	ev := &Event{Name: name, Action: a, Target: p.doc.FindNodes(target), Doc: p.doc, page: p}
	for n := target; n != nil && !ev.stopped; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, h := range p.handlers {
			if h.event == name && h.match.Match(n) {
				ev.Current = p.doc.FindNodes(n)
				h.fn(ev)
			}
		}
	}
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func mustParse(markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("sim: parse blank page: %v", err))
	}
	return doc
}

// annotate renders a copy of root with the ref, visibility and obstruction
// attributes drivers attach to snapshots. Refs number element nodes in
// document order, matching elementByRef.
func annotate(root *html.Node) (string, error) {
	ref := 0
	var clone func(n *html.Node, visible, obstructed bool) *html.Node
	clone = func(n *html.Node, visible, obstructed bool) *html.Node {
		c := &html.Node{Type: n.Type, DataAtom: n.DataAtom, Data: n.Data, Namespace: n.Namespace}
		c.Attr = append([]html.Attribute(nil), n.Attr...)
		if n.Type == html.ElementNode {
			visible = visible && !hidden(n)
			obstructed = obstructed || hasAttr(n, AttrObstructed)
			c.Attr = append(c.Attr,
				html.Attribute{Key: dom.AttrRef, Val: strconv.Itoa(ref)},
				html.Attribute{Key: dom.AttrVisible, Val: strconv.FormatBool(visible)},
				html.Attribute{Key: dom.AttrObstructed, Val: strconv.FormatBool(obstructed)},
			)
			ref++
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			c.AppendChild(clone(ch, visible, obstructed))
		}
		return c
	}

	var b bytes.Buffer
	if err := html.Render(&b, clone(root, true, false)); err != nil {
		return "", fmt.Errorf("sim: render snapshot: %w", err)
	}
	return b.String(), nil
}

func elementByRef(root *html.Node, ref int) *html.Node {
	if ref < 0 {
		return nil
	}
	i := 0
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if i == ref {
				found = n
				return true
			}
			i++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

var neverRendered = map[string]bool{
	"head": true, "script": true, "style": true, "template": true, "noscript": true,
}

func hidden(n *html.Node) bool {
	if neverRendered[n.Data] || hasAttr(n, "hidden") || attr(n, AttrSize) == "0" {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(attr(n, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
