// Package download runs the libro.fm library pipeline.
//
// # Manager
//
// The Manager coordinates one run:
//
//  1. Fetch the library export
//  2. Resolve each book's download links from its detail page
//  3. Download every link into {output}/{author}/{title}/
//  4. Save cover art (optional)
//  5. For mp3 archives: extract, delete the archive, strip track prefixes
//  6. Tag MP3 files and write playlists (optional)
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, client, logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := manager.Run(ctx)
//
// # Progress Events
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Every event is also written to the zap logger with the run_id, stage,
// title and url fields.
//
// # Failures
//
// A failed catalog fetch ends the run. A book whose links cannot be resolved,
// or a file that fails to download, is reported and skipped. Extraction runs
// only when every book has at least one downloaded file.
package download
