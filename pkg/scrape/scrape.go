// Package scrape extracts page metadata for URL saves.
//
// When a saved link points directly at media, the Content-Type decides
// the media kind; otherwise the page HTML is parsed for Open Graph and
// Twitter card tags so the resulting item can be pre-filled with a
// title, description, preview media and canonical link.
package scrape

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/octospacc/Pignio/pkg/media"
)

// PageData is the extracted metadata of a fetched URL.
type PageData struct {
	Title       string
	Description string
	AltText     string

	// Media maps image/video/audio to absolute URLs discovered on the
	// page, or to the URL itself when it served media directly.
	Media map[media.Kind]string

	// Link is the canonical page URL, falling back to the fetched
	// URL.
	Link string
}

// Fetcher is the bounded-timeout HTTP capability, satisfied by
// media.Ingestor.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, mime string, err error)
}

// Fetch downloads a URL and extracts its metadata.
func Fetch(ctx context.Context, f Fetcher, pageURL string) (*PageData, error) {
	body, mimeType, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	data := &PageData{Media: make(map[media.Kind]string), Link: pageURL}

	// Direct media: no page to parse.
	top, _, _ := strings.Cut(mimeType, "/")
	switch top {
	case "image", "video", "audio":
		data.Media[media.Kind(top)] = pageURL
		return data, nil
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	meta := map[string]string{}
	var title, canonical string
	walk(doc, func(n *html.Node) {
		switch n.Data {
		case "meta":
			name := attr(n, "property")
			if name == "" {
				name = attr(n, "name")
			}
			if content := attr(n, "content"); name != "" && content != "" {
				if _, seen := meta[name]; !seen {
					meta[name] = content
				}
			}
		case "title":
			if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "link":
			if attr(n, "rel") == "canonical" && canonical == "" {
				canonical = attr(n, "href")
			}
		}
	})

	data.Title = first(meta, "og:title", "twitter:title")
	if data.Title == "" {
		data.Title = title
	}
	data.Description = first(meta, "og:description", "twitter:description", "description")
	data.AltText = first(meta, "og:image:alt", "twitter:image:alt")

	if v := first(meta, "og:image", "og:image:url", "og:image:secure_url", "twitter:image"); v != "" {
		data.Media[media.KindImage] = resolve(pageURL, v)
	}
	if v := first(meta, "og:video", "og:video:url", "og:video:secure_url"); v != "" {
		data.Media[media.KindVideo] = resolve(pageURL, v)
	}
	if v := first(meta, "og:audio", "og:audio:url", "og:audio:secure_url"); v != "" {
		data.Media[media.KindAudio] = resolve(pageURL, v)
	}

	if canonical != "" {
		data.Link = canonical
	}
	return data, nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
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

func first(meta map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := meta[key]; v != "" {
			return v
		}
	}
	return ""
}

// resolve absolutizes a scheme-relative or path-relative media URL
// against the page it was found on.
func resolve(pageURL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if parsed.Scheme != "" && parsed.Host != "" {
		return ref
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
