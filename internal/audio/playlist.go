package audio

import (
	"fmt"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/libro-downloader/internal/io"
	"github.com/handiism/libro-downloader/internal/model"
)

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS
)

// ParsePlaylistFormat converts a config value to a PlaylistFormat.
func ParsePlaylistFormat(s string) (PlaylistFormat, error) {
	switch strings.ToLower(s) {
	case "", "m3u":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	default:
		return FormatM3U, fmt.Errorf("unknown playlist format %q", s)
	}
}

// Extension returns the file extension, with the dot.
func (f PlaylistFormat) Extension() string {
	if f == FormatPLS {
		return ".pls"
	}
	return ".m3u"
}

// PlaylistCreator generates playlists for a book's tracks.
//
// Track paths in the playlist are relative (just the filename), so the
// playlist must live in the book directory.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist(book, tracks)
//	os.WriteFile(creator.PlaylistPath(book, dir), []byte(content), 0644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,Author - Chapter One
//	// Chapter One.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// extended only applies to FormatM3U.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// PlaylistPath returns {dir}/{sanitized title}{ext}.
func (p *PlaylistCreator) PlaylistPath(book *model.Book, dir string) string {
	name := ioutils.SanitizeFileName(book.Title)
	if name == "" {
		name = "playlist"
	}
	return filepath.Join(dir, name+p.format.Extension())
}

// CreatePlaylist generates playlist content listing tracks in order.
func (p *PlaylistCreator) CreatePlaylist(book *model.Book, tracks []*Track) string {
	if p.format == FormatPLS {
		return p.createPLS(book, tracks)
	}
	return p.createM3U(book, tracks)
}

// createM3U generates an M3U playlist.
//
// Extended M3U format (when extended=true):
//
//	#EXTM3U
//	#EXTINF:-1,Author - Title
//	filename1.mp3
func (p *PlaylistCreator) createM3U(book *model.Book, tracks []*Track) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, track := range tracks {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:-1,%s\n", entryTitle(book, track))
		}
		sb.WriteString(filepath.Base(track.Path))
		sb.WriteString("\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
// Format:
//
//	[playlist]
//	File1=filename.mp3
//	Title1=Author - Title
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(book *model.Book, tracks []*Track) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, track := range tracks {
		n := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", n, filepath.Base(track.Path))
		fmt.Fprintf(&sb, "Title%d=%s\n", n, entryTitle(book, track))
		fmt.Fprintf(&sb, "Length%d=-1\n", n)
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(tracks))
	sb.WriteString("Version=2\n")

	return sb.String()
}

func entryTitle(book *model.Book, track *Track) string {
	if book.Authors == "" {
		return track.Title
	}
	return book.Authors + " - " + track.Title
}
