package model

import (
	"fmt"
	"strings"
)

// Format is the packaging the user wants to download.
type Format string

const (
	// FormatNone keeps every link regardless of packaging.
	FormatNone Format = ""

	// FormatM4B is a single-file audiobook (.m4b).
	FormatM4B Format = "m4b"

	// FormatMP3 is a zip archive of mp3 tracks.
	FormatMP3 Format = "mp3"
)

// ParseFormat converts user input to a Format.
//
// Input is trimmed and compared case-insensitively. An empty string yields
// FormatNone. Anything other than "m4b" or "mp3" returns ErrInvalidFormat.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FormatNone, nil
	case "m4b":
		return FormatM4B, nil
	case "mp3":
		return FormatMP3, nil
	default:
		return FormatNone, fmt.Errorf("%w: %q (expected m4b or mp3)", ErrInvalidFormat, s)
	}
}

// Marker returns the substring a download URL must contain to belong to this
// format. FormatNone has no marker.
func (f Format) Marker() string {
	switch f {
	case FormatM4B:
		return ".m4b"
	case FormatMP3:
		return ".zip"
	default:
		return ""
	}
}

// IsArchive reports whether downloads in this format need extraction.
func (f Format) IsArchive() bool {
	return f == FormatMP3
}

// Matches reports whether a download URL belongs to this format.
func (f Format) Matches(url string) bool {
	marker := f.Marker()
	if marker == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), marker)
}

func (f Format) String() string {
	if f == FormatNone {
		return "any"
	}
	return string(f)
}
