// Package http provides the authenticated session used to talk to libro.fm.
//
// The Client in this package handles:
//   - Browser cookies held in a public-suffix aware cookie jar
//   - A fixed User-Agent, Referer and Accept header on every request
//   - Conversion of network errors and non-2xx responses to *TransportError
//   - File downloads streamed to disk with progress tracking
//   - Timeout handling
//
// # Basic Usage
//
//	client, err := http.NewClient(cfg, cookies)
//
//	// Fetch HTML page
//	html, err := client.GetString(ctx, bookURL)
//
//	// Download file with progress callback
//	n, err := client.DownloadFile(ctx, zipURL, "/path/to/file.zip", nil)
//
// # Errors
//
//	var terr *http.TransportError
//	if errors.As(err, &terr) && terr.StatusCode == 404 {
//	    // missing page
//	}
package http
