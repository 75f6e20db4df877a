package htmlutil

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// InnerText concatenates the direct text children of a node,
// converting <br> into a newline and ignoring any other child
// elements entirely.
func InnerText(sel *goquery.Selection) string {
	var buffer strings.Builder
	for _, node := range sel.Nodes {
		child := node.FirstChild
		for child != nil {
			switch {
			case child.Type == html.TextNode:
				buffer.WriteString(child.Data)
			case child.Type == html.ElementNode && child.Data == "br":
				buffer.WriteString("\n")
			}
			child = child.NextSibling
		}
	}
	return buffer.String()
}

// Attr returns the value of an attribute, or the empty string
// when it is absent.
func Attr(sel *goquery.Selection, name string) string {
	return sel.AttrOr(name, "")
}

// SelectExactly asserts that a selector matches exactly n nodes.
func SelectExactly(doc *goquery.Selection, selector string, n int) (*goquery.Selection, error) {
	sel := doc.Find(selector)
	if len(sel.Nodes) != n {
		return nil, fmt.Errorf(
			"expected exactly %d matches of %q, got %d",
			n, selector, len(sel.Nodes),
		)
	}
	return sel, nil
}

// SelectAtLeast asserts that a selector matches n or more nodes.
func SelectAtLeast(doc *goquery.Selection, selector string, n int) (*goquery.Selection, error) {
	sel := doc.Find(selector)
	if len(sel.Nodes) < n {
		return nil, fmt.Errorf(
			"expected at least %d matches of %q, got %d",
			n, selector, len(sel.Nodes),
		)
	}
	return sel, nil
}
