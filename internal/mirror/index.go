package mirror

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// entry is one link in a directory index page.
type entry struct {
	name string
	url  string
	dir  bool
}

// parseIndex extracts the links of a directory index page, resolved
// against base. Parent links and sort links ("?C=N;O=D") are dropped.
func parseIndex(doc *html.Node, base *url.URL) map[string]entry {
	entries := make(map[string]entry)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if e, ok := linkEntry(n, base); ok {
				entries[e.name] = e
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return entries
}

func linkEntry(n *html.Node, base *url.URL) (entry, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = attr.Val
			break
		}
	}
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return entry{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return entry{}, false
	}
	resolved := base.ResolveReference(ref)

	// Only links below the current directory are index entries.
	if resolved.Host != base.Host || !strings.HasPrefix(resolved.Path, base.Path) || resolved.Path == base.Path {
		return entry{}, false
	}

	rel := strings.TrimPrefix(resolved.Path, base.Path)
	dir := strings.HasSuffix(rel, "/")
	name := strings.TrimSuffix(rel, "/")
	if name == "" || strings.Contains(name, "/") {
		return entry{}, false
	}

	return entry{name: name, url: resolved.String(), dir: dir}, true
}
