package model

import (
	"path/filepath"
	"strconv"
	"strings"

	ioutils "github.com/handiism/libro-downloader/internal/io"
)

// Book represents one purchased audiobook from the libro.fm library export.
//
// A Book is created from a single CSV row by the catalog fetcher and is never
// modified afterwards, except for the Links and Files slices which are filled
// in by the later pipeline stages:
//
//	Cataloged -> LinksResolved -> Downloaded -> [Extracted -> Renamed]
//
// Example:
//
//	book := &Book{Title: "The Hobbit", Authors: "J.R.R. Tolkien"}
//	dir := book.Dir("library_out")
//	// dir = "library_out/J.R.R. Tolkien/The Hobbit"
type Book struct {
	// Title is the audiobook title as listed in the export.
	Title string

	// Authors is the free-text author list ("Author(s)" column).
	Authors string

	// Narrators is the free-text narrator list ("Narrator(s)" column).
	Narrators string

	// ISBN is the numeric ISBN. Zero means the export had none or it could
	// not be parsed.
	ISBN int64

	// PublicationDate is kept as the raw export text.
	PublicationDate string

	// PurchasedDate is kept as the raw export text.
	PurchasedDate string

	// URL is the account-gated detail page that lists the download links.
	URL string

	// Links holds the download links resolved from the detail page, in page order.
	Links []*DownloadLink

	// CoverURL is the cover image advertised by the detail page, if any.
	CoverURL string

	// Files holds every file fully written to disk for this book.
	Files []*DownloadedFile
}

// Dir returns the directory the book's files are written to:
// {root}/{sanitized authors}/{sanitized title}.
func (b *Book) Dir(root string) string {
	return filepath.Join(root, ioutils.SanitizeFileName(b.Authors), ioutils.SanitizeFileName(b.Title))
}

// HasLinks reports whether at least one download link was resolved.
func (b *Book) HasLinks() bool {
	return len(b.Links) > 0
}

// DownloadedPaths returns the on-disk paths of every downloaded file.
func (b *Book) DownloadedPaths() []string {
	paths := make([]string, 0, len(b.Files))
	for _, f := range b.Files {
		if f.Path != "" {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// String renders a multi-line summary of the book, using "N/A" for absent values.
func (b *Book) String() string {
	isbn := "N/A"
	if b.ISBN != 0 {
		isbn = strconv.FormatInt(b.ISBN, 10)
	}

	parts := []string{
		"Title: " + b.Title,
		"Author(s): " + b.Authors,
		"Narrator(s): " + b.Narrators,
		"ISBN: " + isbn,
		"Publication Date: " + orNA(b.PublicationDate),
		"Purchased Date: " + orNA(b.PurchasedDate),
		"URL: " + orNA(b.URL),
	}
	return strings.Join(parts, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
