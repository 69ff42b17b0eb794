package tables

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FuseMarkup collapses runs of adjacent <table> elements in a fragment into
// a single table. Rows of the later tables are appended to the first table's
// last body. A header that repeats the first table's header verbatim is
// dropped; other headers become body rows. Captions and column groups of the
// later tables are discarded.
//
// Fragments that cannot be parsed are returned unchanged with the error.
func FuseMarkup(fragment string) (string, error) {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment, err
	}

	var out []*html.Node
	var head *html.Node // first table of the current run
	for _, n := range nodes {
		switch {
		case isElement(n, atom.Table):
			if head == nil {
				head = n
				out = append(out, n)
				continue
			}
			appendRows(head, n)
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "":
			// whitespace between tables does not break a run
			if head == nil {
				out = append(out, n)
			}
		default:
			head = nil
			out = append(out, n)
		}
	}
	return renderNodes(out)
}

// appendRows moves the rows of src into dst.
func appendRows(dst, src *html.Node) {
	body := lastBody(dst)
	header := headerText(dst)

	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case isElement(c, atom.Thead):
			if header == "" || textOf(c) != header {
				moveRows(body, c)
			}
		case isElement(c, atom.Tbody), isElement(c, atom.Tfoot):
			moveRows(body, c)
		case isElement(c, atom.Tr):
			src.RemoveChild(c)
			body.AppendChild(c)
		}
		c = next
	}
}

func moveRows(dst, section *html.Node) {
	for r := section.FirstChild; r != nil; {
		next := r.NextSibling
		if isElement(r, atom.Tr) {
			section.RemoveChild(r)
			dst.AppendChild(r)
		}
		r = next
	}
}

// lastBody returns the table's last tbody, creating one when the table has
// none.
func lastBody(t *html.Node) *html.Node {
	var body *html.Node
	for c := t.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Tbody) {
			body = c
		}
	}
	if body == nil {
		body = &html.Node{Type: html.ElementNode, DataAtom: atom.Tbody, Data: "tbody"}
		t.AppendChild(body)
	}
	return body
}

func headerText(t *html.Node) string {
	for c := t.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Thead) {
			return textOf(c)
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
			sb.WriteByte('|')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

func parseFragment(fragment string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("parsing table markup: %w", err)
	}
	return nodes, nil
}

func renderNodes(nodes []*html.Node) (string, error) {
	var sb strings.Builder
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		if err := html.Render(&sb, n); err != nil {
			return "", fmt.Errorf("rendering table markup: %w", err)
		}
	}
	return sb.String(), nil
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// tablePolicy keeps table structure, cell spans and inline emphasis.
func tablePolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("table", "caption", "colgroup", "col", "thead", "tbody", "tfoot",
			"tr", "th", "td", "br", "b", "strong", "i", "em", "sub", "sup", "p", "span")
		p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
		p.AllowAttrs("scope").OnElements("th")
		policy = p
	})
	return policy
}

// Sanitize strips everything from an HTML table fragment except table
// structure and inline emphasis. Scripts, styles, event handlers and links
// are removed.
func Sanitize(fragment string) string {
	return tablePolicy().Sanitize(fragment)
}

var (
	mdOnce sync.Once
	mdConv *converter.Converter
)

func markdownConverter() *converter.Converter {
	mdOnce.Do(func() {
		mdConv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	})
	return mdConv
}

// ToMarkdown converts an HTML table fragment to a GitHub-flavored Markdown
// pipe table. Cell spans are not representable and are flattened.
func ToMarkdown(fragment string) (string, error) {
	md, err := markdownConverter().ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("converting table to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
