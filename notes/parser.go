// Package notes is the HTML note boundary: note HTML goes in, triples
// come out. The default parser converts the note body to markdown, keeps
// a plain-text form for labels, and collects outgoing links.
package notes

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// Note is one parsed note body.
type Note struct {
	// Markdown is the converted note content.
	Markdown string
	// Title is the first heading or line, used as the note's label.
	Title string
	// Links are the absolute URLs the note points at, in document order.
	Links []string
}

// Parser converts note HTML. Safe for reuse across notes.
type Parser struct {
	converter *md.Converter
}

// NewParser creates a parser with GitHub-flavored markdown output.
func NewParser() *Parser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Parser{converter: converter}
}

// Parse converts one note body.
func (p *Parser) Parse(noteHTML string) (Note, error) {
	markdown, err := p.converter.ConvertString(noteHTML)
	if err != nil {
		return Note{}, err
	}
	markdown = strings.TrimSpace(excessiveLinesRe.ReplaceAllString(markdown, "\n\n"))

	return Note{
		Markdown: markdown,
		Title:    noteTitle(markdown),
		Links:    extractLinks(noteHTML),
	}, nil
}

// Triples emits the note's content triples for the given subject. pred is
// the configured content predicate; linkPred receives one triple per
// outgoing link.
func (n Note) Triples(subject rdf.IRI, pred, linkPred rdf.IRI) []rdf.Triple {
	var out []rdf.Triple
	if n.Markdown != "" {
		out = append(out, rdf.Triple{Subject: subject, Predicate: pred, Object: rdf.Literal(n.Markdown)})
	}
	if n.Title != "" {
		out = append(out, rdf.Triple{
			Subject: subject, Predicate: vocabulary.RdfsLabel, Object: rdf.Literal(n.Title),
		})
	}
	for _, link := range n.Links {
		out = append(out, rdf.Triple{
			Subject: subject, Predicate: linkPred, Object: rdf.IRIObject(rdf.CoerceIRI(link)),
		})
	}
	return rdf.Dedupe(out)
}

// noteTitle takes the first heading, or failing that the first non-empty
// line, truncated to something label-sized.
func noteTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > 120 {
			line = string(r[:120])
		}
		return line
	}
	return ""
}

// extractLinks walks the parsed document for anchor hrefs, skipping
// fragments and relative references.
func extractLinks(noteHTML string) []string {
	doc, err := html.Parse(strings.NewReader(noteHTML))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if rdf.IsAbsoluteIRI(href) && !seen[href] {
					seen[href] = true
					links = append(links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}
