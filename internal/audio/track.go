package audio

import (
	"path/filepath"
	"strings"
)

// Track is one extracted audio file of a book.
type Track struct {
	// Path is the file location on disk.
	Path string

	// Title is the file name without its extension.
	Title string

	// Number is the 1-based position of the track within the book.
	Number int
}

// TracksFromFiles returns the mp3 files among paths as tracks, numbered in
// the order given. Other files are ignored.
func TracksFromFiles(paths []string) []*Track {
	var tracks []*Track
	for _, p := range paths {
		ext := filepath.Ext(p)
		if !strings.EqualFold(ext, ".mp3") {
			continue
		}
		tracks = append(tracks, &Track{
			Path:   p,
			Title:  strings.TrimSuffix(filepath.Base(p), ext),
			Number: len(tracks) + 1,
		})
	}
	return tracks
}
