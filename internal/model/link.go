package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DownloadLink is a single downloadable file offered on a book's detail page.
//
// FileName is derived from the URL's "file" query parameter, decoded and
// sanitized, so the same URL always yields the same FileName.
type DownloadLink struct {
	// FileName is the sanitized, declared name of the file.
	FileName string

	// URL is the absolute download URL.
	URL string
}

// DownloadedFile is the on-disk result of fetching one DownloadLink.
type DownloadedFile struct {
	Link  *DownloadLink
	Path  string
	Bytes int64
}

// UniquePath returns path unchanged if it is not in taken, otherwise it
// appends " (2)", " (3)", ... before the extension until the result is free.
//
// Example:
//
//	UniquePath("a/Book.zip", map[string]bool{"a/Book.zip": true})
//	// Returns "a/Book (2).zip"
func UniquePath(path string, taken map[string]bool) string {
	if !taken[path] {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}
