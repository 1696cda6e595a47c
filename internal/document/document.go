package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Batch lists the subtree roots inserted by one mutation.
type Batch struct {
	Added []*html.Node
}

// Event is delivered to listeners registered with AddEventListener.
type Event struct {
	Type   string
	Target *html.Node
}

// Document is a mutable HTML tree with mutation observers and event
// listeners. Queries and mutations are serialized by an internal lock;
// observers and listeners run without it, so they may query and mutate the
// document freely.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	doc  *goquery.Document

	obsMu      sync.Mutex
	observers  map[int]func(Batch)
	nextID     int
	queue      []Batch
	delivering bool

	lisMu     sync.Mutex
	listeners map[*html.Node]map[string][]func(Event)
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return newDocument(root), nil
}

// ParseString parses an HTML page held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// New returns an empty page with a head and a body.
func New() *Document {
	d, _ := ParseString("<html><head></head><body></body></html>")
	return d
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		doc:       goquery.NewDocumentFromNode(root),
		observers: make(map[int]func(Batch)),
		listeners: make(map[*html.Node]map[string][]func(Event)),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element, or the root when the page has none.
func (d *Document) Body() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	if body := d.doc.Find("body").First(); body.Length() > 0 {
		return body.Nodes[0]
	}
	return d.root
}

// Find returns the nodes matching selector in document order.
func (d *Document) Find(selector string) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(selector).Nodes
}

// First returns the first node matching selector, or nil.
func (d *Document) First(selector string) *html.Node {
	nodes := d.Find(selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// FindWithin returns the nodes matching selector in the subtree rooted at
// n, including n itself, in document order.
func (d *Document) FindWithin(n *html.Node, selector string) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := goquery.NewDocumentFromNode(n).Selection
	return sel.Filter(selector).AddSelection(sel.Find(selector)).Nodes
}

// Matches reports whether n matches selector.
func (d *Document) Matches(n *html.Node, selector string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return goquery.NewDocumentFromNode(n).Is(selector)
}

// Closest returns the nearest node matching selector among n and its
// ancestors, or nil.
func (d *Document) Closest(n *html.Node, selector string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := goquery.NewDocumentFromNode(n).Closest(selector)
	if c.Length() == 0 {
		return nil
	}
	return c.Nodes[0]
}

// Contains reports whether n is currently attached to the document.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// Append parses fragment in the context of parent and appends the result.
// It returns the inserted top-level nodes.
func (d *Document) Append(parent *html.Node, fragment string) ([]*html.Node, error) {
	ctx := parent
	if ctx.Type != html.ElementNode {
		ctx = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	d.AppendNodes(parent, nodes...)
	return nodes, nil
}

// AppendNodes appends detached nodes to parent. Nodes that are still
// attached elsewhere are moved.
func (d *Document) AppendNodes(parent *html.Node, nodes ...*html.Node) {
	if len(nodes) == 0 {
		return
	}
	d.mu.Lock()
	for _, n := range nodes {
		detach(n)
		parent.AppendChild(n)
	}
	d.mu.Unlock()
	d.notify(Batch{Added: nodes})
}

// InsertAfter inserts n as the next sibling of ref.
func (d *Document) InsertAfter(ref, n *html.Node) error {
	d.mu.Lock()
	if ref.Parent == nil {
		d.mu.Unlock()
		return fmt.Errorf("reference node is detached")
	}
	detach(n)
	ref.Parent.InsertBefore(n, ref.NextSibling)
	d.mu.Unlock()
	d.notify(Batch{Added: []*html.Node{n}})
	return nil
}

// Remove detaches n from the document. Removals are not reported to
// observers.
func (d *Document) Remove(n *html.Node) {
	d.mu.Lock()
	detach(n)
	d.mu.Unlock()
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Attr returns the value of attribute key on n.
func (d *Document) Attr(n *html.Node, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return getAttr(n, key)
}

// SetAttr sets attribute key on n.
func (d *Document) SetAttr(n *html.Node, key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setAttr(n, key, value)
}

// RemoveAttr deletes attribute key from n.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Text returns the concatenated text content of n.
func (d *Document) Text(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return goquery.NewDocumentFromNode(n).Text()
}

// SetText replaces the children of n with a single text node. Text changes
// are character data mutations and are not reported to observers.
func (d *Document) SetText(n *html.Node, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// HTML renders the whole document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

// OuterHTML renders n and its subtree.
func (d *Document) OuterHTML(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out, err := goquery.OuterHtml(goquery.NewDocumentFromNode(n).Selection)
	if err != nil {
		return ""
	}
	return out
}

// Element builds a detached element with the given attributes, given as
// key/value pairs.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		setAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}
