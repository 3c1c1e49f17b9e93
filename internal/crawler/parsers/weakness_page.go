// Package parsers extracts the fields of interest from raw source documents:
// CWE definition pages (HTML) and NVD 1.1 feed items (JSON).
package parsers

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"vulnfeed/internal/models"
	"vulnfeed/pkg/utils"
)

// Landmark ids on a CWE definition page.
const (
	LandmarkDescription   = "Description"
	LandmarkExploitLikely = "Likelihood_Of_Exploit"
	detailClass           = "detail"
)

// RequiredField is a field whose absence drops the whole unit.
type RequiredField struct {
	Value   string
	Present bool
}

// OptionalField is a field that falls back to a sentinel when absent.
type OptionalField struct {
	Value     string
	Defaulted bool
}

// WeaknessFields is the partial record extracted from one definition page.
type WeaknessFields struct {
	Description    RequiredField
	Exploitability OptionalField
	empty          bool
}

// Empty reports whether the page had no content at all.
func (f WeaknessFields) Empty() bool {
	return f.empty
}

// ParseWeaknessPage extracts the description and exploitability sections of a
// CWE definition page. Each section is the text of the first div with class
// "detail" following the landmark div in document order.
func ParseWeaknessPage(content string) WeaknessFields {
	if strings.TrimSpace(content) == "" {
		return WeaknessFields{empty: true}
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		// html.Parse only fails on reader errors
		return WeaknessFields{empty: true}
	}

	nodes := flatten(doc)
	fields := WeaknessFields{}

	if text, found := sectionText(nodes, LandmarkDescription); found {
		fields.Description = RequiredField{Value: text, Present: true}
	}

	text, found := sectionText(nodes, LandmarkExploitLikely)
	if !found || text == "" {
		fields.Exploitability = OptionalField{Value: models.NotSpecified, Defaulted: true}
	} else {
		fields.Exploitability = OptionalField{Value: text}
	}

	return fields
}

// sectionText returns the detail text following the landmark and whether the
// landmark exists. A landmark without a detail block yields "".
func sectionText(nodes []*html.Node, landmark string) (string, bool) {
	idx := slices.IndexFunc(nodes, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && attr(n, "id") == landmark
	})
	if idx < 0 {
		return "", false
	}

	for _, n := range nodes[idx+1:] {
		if n.DataAtom == atom.Div && hasClass(n, detailClass) {
			return textContent(n), true
		}
	}

	return "", true
}

// flatten lists element nodes in document order.
func flatten(root *html.Node) []*html.Node {
	var out []*html.Node

	for n := range root.Descendants() {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}

	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

// textContent joins the text below n, skipping script and style, with
// whitespace collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return utils.NewStringHelper().NormalizeWhitespace(sb.String())
}
