// Package htmlscan extracts the signals the check suites look for in a
// rendered page: SEO tags, JSON-LD blocks, responsive hints, runtime
// error text and content indicators.
package htmlscan

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Document is a parsed page. Element-level facts come from the parse tree;
// substring indicators are matched case-insensitively against the raw body.
type Document struct {
	Raw   string
	lower string

	Title    string
	HasTitle bool
	// Meta maps lower-cased name or property attributes to content.
	Meta map[string]string
	// Links maps lower-cased rel values to href.
	Links map[string]string
	// JSONLD holds the bodies of application/ld+json scripts.
	JSONLD []string
	// Anchors holds the href of every <a> element in document order.
	Anchors []string

	H1Count      int
	ImgCount     int
	LazyImgCount int
	ScriptCount  int
	HasNoscript  bool
	HasRoot      bool
}

// Scan parses body. Malformed markup never fails; the HTML5 parser
// recovers the same way browsers do.
func Scan(body []byte) *Document {
	raw := string(body)
	d := &Document{
		Raw:   raw,
		lower: strings.ToLower(raw),
		Meta:  make(map[string]string),
		Links: make(map[string]string),
	}

	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return d
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			d.visit(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return d
}

func (d *Document) visit(n *html.Node) {
	if id := attr(n, "id"); id == "root" {
		d.HasRoot = true
	}

	switch n.Data {
	case "title":
		d.HasTitle = true
		if d.Title == "" {
			d.Title = textContent(n)
		}
	case "meta":
		content := attr(n, "content")
		if name := strings.ToLower(attr(n, "name")); name != "" {
			d.Meta[name] = content
		}
		if prop := strings.ToLower(attr(n, "property")); prop != "" {
			d.Meta[prop] = content
		}
	case "link":
		for _, rel := range strings.Fields(strings.ToLower(attr(n, "rel"))) {
			if _, seen := d.Links[rel]; !seen {
				d.Links[rel] = attr(n, "href")
			}
		}
	case "script":
		d.ScriptCount++
		if strings.EqualFold(strings.TrimSpace(attr(n, "type")), "application/ld+json") {
			d.JSONLD = append(d.JSONLD, textContent(n))
		}
	case "h1":
		d.H1Count++
	case "img":
		d.ImgCount++
		if strings.EqualFold(attr(n, "loading"), "lazy") {
			d.LazyImgCount++
		}
	case "noscript":
		d.HasNoscript = true
	case "a":
		if href := strings.TrimSpace(attr(n, "href")); href != "" {
			d.Anchors = append(d.Anchors, href)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(sb.String())
}

// Contains reports whether the raw body contains s, ignoring case.
func (d *Document) Contains(s string) bool {
	return strings.Contains(d.lower, strings.ToLower(s))
}

// Count returns the number of non-overlapping occurrences of s, ignoring case.
func (d *Document) Count(s string) int {
	return strings.Count(d.lower, strings.ToLower(s))
}

// Matches returns the terms found in the body, in the order given.
func (d *Document) Matches(terms ...string) []string {
	var found []string
	for _, t := range terms {
		if d.Contains(t) {
			found = append(found, t)
		}
	}
	return found
}

// AnyOf reports whether at least one term occurs in the body.
func (d *Document) AnyOf(terms ...string) bool {
	for _, t := range terms {
		if d.Contains(t) {
			return true
		}
	}
	return false
}

// HasMeta reports a meta tag with the given name or property.
func (d *Document) HasMeta(key string) bool {
	_, ok := d.Meta[strings.ToLower(key)]
	return ok
}

// HasMetaPrefix reports a meta tag whose name or property starts with prefix.
func (d *Document) HasMetaPrefix(prefix string) bool {
	prefix = strings.ToLower(prefix)
	for k := range d.Meta {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// HasLink reports a link element with the given rel.
func (d *Document) HasLink(rel string) bool {
	_, ok := d.Links[strings.ToLower(rel)]
	return ok
}

// Size returns the body length in bytes.
func (d *Document) Size() int {
	return len(d.Raw)
}

var whitespaceRun = regexp.MustCompile(`\s{4,}`)

// LooksMinified reports whether the first kilobyte has no run of four or
// more whitespace characters.
func (d *Document) LooksMinified() bool {
	head := d.Raw
	if len(head) > 1000 {
		head = head[:1000]
	}
	return !whitespaceRun.MatchString(head)
}

// LazyLoading reports lazy image loading or any lazy-loading hint.
func (d *Document) LazyLoading() bool {
	return d.LazyImgCount > 0 || strings.Contains(d.Raw, "loading=") || d.Contains("lazy")
}
