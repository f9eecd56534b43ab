package model

import "errors"

// Sentinel errors shared by the pipeline stages.
var (
	// ErrAuthenticationMissing means no browser yielded libro.fm cookies.
	// The user has to log in with a browser before running again.
	ErrAuthenticationMissing = errors.New("no libro.fm cookies found in any browser")

	// ErrNoLinks means a detail page produced no download links after filtering.
	ErrNoLinks = errors.New("no download links found")

	// ErrNoDownloadLinks is returned when a download is requested for a book
	// whose links were never resolved.
	ErrNoDownloadLinks = errors.New("book has no resolved download links")

	// ErrMissingDownloads is returned by extraction when any book lacks
	// downloaded files.
	ErrMissingDownloads = errors.New("cannot extract files if they have not all been downloaded")

	// ErrInvalidFormat is returned for format input other than m4b or mp3.
	ErrInvalidFormat = errors.New("invalid format")
)
