package libro

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ioutils "github.com/handiism/libro-downloader/internal/io"
	"github.com/handiism/libro-downloader/internal/model"
)

// downloadMarker matches the text that labels a download option on a detail
// page, e.g. "Download 1" or "Download 2 of 3".
var downloadMarker = regexp.MustCompile(`Download \d`)

// fileNameReplacer is the minimal decode table applied when a file name is
// not valid percent-encoding.
var fileNameReplacer = strings.NewReplacer(
	"%28", "(",
	"%29", ")",
	"%27", "'",
	"+", " ",
)

// Resolution is what a detail page offers for one book.
type Resolution struct {
	// Links holds the download links in page order.
	Links []*model.DownloadLink

	// CoverURL is the page's og:image, or empty.
	CoverURL string
}

// Resolver extracts download links from book detail pages.
type Resolver struct {
	client Getter
	base   *url.URL
	format model.Format
}

// NewResolver creates a Resolver. Relative links are resolved against
// baseURL. With a format other than model.FormatNone, only links of that
// format are kept.
func NewResolver(client Getter, baseURL string, format model.Format) (*Resolver, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	return &Resolver{client: client, base: base, format: format}, nil
}

// Resolve fetches the book's detail page and returns its download links.
//
// If the page yields no link after format filtering, Resolve returns the
// Resolution together with an error wrapping model.ErrNoLinks.
func (r *Resolver) Resolve(ctx context.Context, book *model.Book) (*Resolution, error) {
	if book.URL == "" {
		return &Resolution{}, fmt.Errorf("%q: no detail URL: %w", book.Title, model.ErrNoLinks)
	}

	page, err := r.client.Get(ctx, book.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch detail page for %q: %w", book.Title, err)
	}

	res, err := r.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parse detail page for %q: %w", book.Title, err)
	}
	if len(res.Links) == 0 {
		return res, fmt.Errorf("%q (format %s): %w", book.Title, r.format, model.ErrNoLinks)
	}

	return res, nil
}

// Parse extracts the download links and cover URL from a detail page.
//
// A link qualifies when its anchor text or one of its attributes contains the
// download marker, or when it is the first anchor after marker text on the
// same line.
func (r *Resolver) Parse(page []byte) (*Resolution, error) {
	res := &Resolution{Links: []*model.DownloadLink{}}

	var (
		inAnchor bool
		href     string
		taken    bool
		text     strings.Builder
		pending  bool
	)

	add := func(raw string) {
		link, ok := r.link(raw)
		if ok && r.format.Matches(link.URL) {
			res.Links = append(res.Links, link)
		}
	}

	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return res, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.A:
				inAnchor = true
				href = attr(tok, "href")
				text.Reset()
				taken = false
				if href == "" {
					break
				}
				if pending || markedByAttr(tok) {
					add(href)
					taken = true
					pending = false
				}
			case atom.Meta:
				if res.CoverURL == "" && attr(tok, "property") == "og:image" {
					res.CoverURL = r.absolute(attr(tok, "content"))
				}
			}

		case html.EndTagToken:
			if tok := z.Token(); tok.DataAtom == atom.A && inAnchor {
				if !taken && href != "" && downloadMarker.MatchString(text.String()) {
					add(href)
				}
				inAnchor = false
			}

		case html.TextToken:
			data := string(z.Text())
			if inAnchor {
				text.WriteString(data)
				continue
			}
			if loc := downloadMarker.FindStringIndex(data); loc != nil {
				pending = !strings.Contains(data[loc[1]:], "\n")
			} else if strings.Contains(data, "\n") {
				pending = false
			}
		}
	}
}

// link builds a DownloadLink from an href.
func (r *Resolver) link(href string) (*model.DownloadLink, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	u := r.base.ResolveReference(ref)

	name, ok := fileParam(u.RawQuery)
	if ok {
		name = DecodeFileName(name)
	} else if base := path.Base(u.Path); base != "/" && base != "." {
		name = base
	}
	name = ioutils.SanitizeFileName(name)
	if name == "" {
		name = "download"
	}

	return &model.DownloadLink{
		FileName: name,
		URL:      u.String(),
	}, true
}

// markedByAttr reports whether an anchor carries the download marker in an
// attribute, e.g. data-label="Download 1 of 2".
func markedByAttr(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key != "href" && downloadMarker.MatchString(a.Val) {
			return true
		}
	}
	return false
}

func (r *Resolver) absolute(raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return r.base.ResolveReference(ref).String()
}

// DecodeFileName decodes the raw value of a download URL's "file" parameter.
//
// The value is query-unescaped. If it is not valid percent-encoding, only
// %28, %29, %27 and '+' are decoded.
//
// Example:
//
//	DecodeFileName("Other%28Title%29.m4b") // "Other(Title).m4b"
//	DecodeFileName("My+Book%27s.zip")      // "My Book's.zip"
func DecodeFileName(raw string) string {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		return decoded
	}
	return fileNameReplacer.Replace(raw)
}

// fileParam returns the undecoded value of the "file" query parameter.
func fileParam(rawQuery string) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if key == "file" {
			return value, true
		}
	}
	return "", false
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
