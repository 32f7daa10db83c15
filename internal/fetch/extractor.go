package fetch

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	markdownLink  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownMarks = regexp.MustCompile("(?m)^\\s{0,3}(#{1,6}\\s+|[-*+]\\s+|>\\s?)|[*_`]{1,3}")
	markdownEsc   = regexp.MustCompile(`\\([[:punct:]])`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// Extractor turns an article page into readable plain text. It prefers semantic landmarks
// (article, main, role=main) and falls back to the densest text block of the body.
type Extractor struct {
	md        *converter.Converter
	sanitizer *bluemonday.Policy
	minBlock  int
}

func NewExtractor() *Extractor {
	return &Extractor{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		sanitizer: bluemonday.StrictPolicy(),
		minBlock:  80,
	}
}

func (e *Extractor) Extract(pageURL, rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	stripBoilerplate(doc)

	blocks := findLandmarks(doc)
	if len(blocks) == 0 {
		if best := densestBlock(doc, e.minBlock); best != nil {
			blocks = []*html.Node{best}
		} else if body := findFirst(doc, atom.Body); body != nil {
			blocks = []*html.Node{body}
		}
	}

	var parts []string
	for _, n := range blocks {
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render content block: %w", err)
		}
		md, err := e.md.ConvertString(buf.String(), converter.WithDomain(pageURL))
		if err != nil {
			return "", fmt.Errorf("failed to convert content block: %w", err)
		}
		if text := e.plain(md); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

// plain drops markdown syntax and any markup that survived conversion.
func (e *Extractor) plain(md string) string {
	md = markdownImage.ReplaceAllString(md, "")
	md = markdownLink.ReplaceAllString(md, "$1")
	md = markdownMarks.ReplaceAllString(md, "")
	md = markdownEsc.ReplaceAllString(md, "$1")
	md = html.UnescapeString(e.sanitizer.Sanitize(md))

	lines := strings.Split(md, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

var boilerplateAtoms = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Button:   true,
	atom.Figure:   true,
}

var boilerplateHints = []string{"comment", "share", "social", "related", "newsletter", "subscribe", "promo", "advert", "cookie", "sidebar", "footer", "nav"}

func isBoilerplate(n *html.Node) bool {
	if boilerplateAtoms[n.DataAtom] {
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "class", "id":
			v := strings.ToLower(a.Val)
			for _, hint := range boilerplateHints {
				if strings.Contains(v, hint) {
					return true
				}
			}
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "role":
			if a.Val == "navigation" || a.Val == "banner" || a.Val == "contentinfo" {
				return true
			}
		}
	}
	return false
}

func stripBoilerplate(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && isBoilerplate(c)) {
			n.RemoveChild(c)
		} else {
			stripBoilerplate(c)
		}
		c = next
	}
}

// findLandmarks returns the outermost article or main elements.
func findLandmarks(doc *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Article || n.DataAtom == atom.Main || attr(n, "role") == "main" {
				out = append(out, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// densestBlock picks the element whose direct paragraphs carry the most text.
func densestBlock(doc *html.Node, minLen int) *html.Node {
	var best *html.Node
	bestLen := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			total := 0
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.DataAtom == atom.P {
					total += len(textOf(c))
				}
			}
			if total >= minLen && total > bestLen {
				best, bestLen = n, total
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return best
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
