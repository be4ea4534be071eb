// Package textclean turns HTML-ish listing text into plain text with
// paragraph breaks preserved.
package textclean

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankRuns = regexp.MustCompile(`\n{2,}`)

// Clean unescapes entities, turns <p> and <br> into line breaks, strips the
// remaining markup and normalizes whitespace. Runs of blank lines collapse to
// a single paragraph break and every line is trimmed.
//
// Clean never fails: when the markup cannot be parsed the unescaped text is
// used as is.
func Clean(text string) string {
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "&#13;", "\n")

	if extracted, err := extractText(text); err == nil {
		text = extracted
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractText parses text as an HTML body fragment and returns its text
// content with a newline after every p and br element.
func extractText(text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("html parser panic: %v", r)
		}
	}()

	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}

	root := &xhtml.Node{Type: xhtml.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find("p, br").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if n.Parent == nil {
			return
		}
		n.Parent.InsertBefore(&xhtml.Node{Type: xhtml.TextNode, Data: "\n"}, n.NextSibling)
	})

	return doc.Text(), nil
}
