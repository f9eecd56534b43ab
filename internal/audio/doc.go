// Package audio finishes extracted mp3 audiobooks: ID3 tags and playlists.
//
// # ID3 Tagging
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	for _, track := range audio.TracksFromFiles(files) {
//	    err := tagger.SaveTags(track, book, coverJPEG)
//	}
//
// The tagger writes:
//   - Artist and Album Artist (authors)
//   - Album (book title) and Track Title
//   - Composer (narrators)
//   - Track Number, Year
//   - Cover Art (embedded in MP3)
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(book, tracks)
//	os.WriteFile(creator.PlaylistPath(book, dir), []byte(content), 0644)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
package audio
