// Package extract pulls the listings text and item identifiers out of a
// rendered page.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Result of extracting one page
type Result struct {
	Text  string
	Items []string
	//Scope is the selector that matched, empty when the whole body was used
	Scope string
}

var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "tr": true,
	"td": true, "th": true, "table": true, "section": true, "article": true,
	"header": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "br": true, "a": true, "nav": true,
}

// Page scopes the document to the first selector that matches anything
// (falling back to body), renders its visible text one block per line and
// collects the text of every itemSelector match.
func Page(rawHTML string, selectors []string, itemSelector string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	res := &Result{}
	scope := doc.Find("body")
	for _, sel := range selectors {
		if found := doc.Find(sel); found.Length() > 0 {
			scope = found.First()
			res.Scope = sel
			break
		}
	}
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	res.Text = VisibleText(scope)

	if itemSelector != "" {
		scope.Find(itemSelector).Each(func(_ int, s *goquery.Selection) {
			item := strings.Join(strings.Fields(s.Text()), " ")
			if item != "" {
				res.Items = append(res.Items, item)
			}
		})
	}
	return res, nil
}

// VisibleText renders the text of a selection, one line per block element
func VisibleText(sel *goquery.Selection) string {
	var lines []string
	var current strings.Builder

	flush := func() {
		line := strings.Join(strings.Fields(current.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			current.WriteByte(' ')
			return
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	flush()
	return strings.Join(lines, "\n")
}

// Title returns the document title
func Title(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
