// Package extractor turns fetched HTML into a title, a whitespace-collapsed
// text body and the set of in-scope outbound links.
package extractor

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"eidrag/internal/scope"
)

// Page is the extraction result for one HTML document.
type Page struct {
	Title string
	Text  string
	Links []string
}

// skipped elements never contribute body text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Noscript: true,
	atom.Template: true,
}

// Extract parses raw HTML relative to baseURL. Only links for which inScope
// returns true are kept, normalized and de-duplicated in document order.
func Extract(raw, baseURL string, inScope func(string) bool) (Page, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Page{}, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return Page{}, err
	}

	var (
		page  Page
		body  strings.Builder
		seen  = map[string]struct{}{}
		title string
	)

	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Title && title == "":
				title = textOf(n)
				return
			case n.DataAtom == atom.Body:
				inBody = true
			case n.DataAtom == atom.A:
				if link := resolve(base, attr(n, "href")); link != "" && inScope(link) {
					if _, ok := seen[link]; !ok {
						seen[link] = struct{}{}
						page.Links = append(page.Links, link)
					}
				}
			}
			if skipped[n.DataAtom] {
				return
			}
		}
		if n.Type == html.TextNode && inBody {
			body.WriteString(n.Data)
			body.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(root, false)

	page.Title = collapse(title)
	page.Text = collapse(body.String())
	return page, nil
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return scope.NormalizeURL(base.ResolveReference(ref).String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// collapse folds every whitespace run into a single space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
