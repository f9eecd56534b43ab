package audio

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/handiism/libro-downloader/internal/model"
)

func createTestBook() (*model.Book, []*Track) {
	book := &model.Book{
		Title:   "Test: Book",
		Authors: "Test Author",
	}
	tracks := TracksFromFiles([]string{
		"/lib/Test Author/Test꞉ Book/Chapter 1.mp3",
		"/lib/Test Author/Test꞉ Book/cover.jpg",
		"/lib/Test Author/Test꞉ Book/Chapter 2.MP3",
	})
	return book, tracks
}

func TestTracksFromFiles(t *testing.T) {
	_, tracks := createTestBook()

	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	if tracks[0].Title != "Chapter 1" || tracks[0].Number != 1 {
		t.Errorf("first track = %+v", tracks[0])
	}
	if tracks[1].Title != "Chapter 2" || tracks[1].Number != 2 {
		t.Errorf("second track = %+v", tracks[1])
	}
}

func TestPlaylistCreator_M3U(t *testing.T) {
	book, tracks := createTestBook()
	creator := NewPlaylistCreator(FormatM3U, false)

	content := creator.CreatePlaylist(book, tracks)

	want := "Chapter 1.mp3\nChapter 2.MP3\n"
	if content != want {
		t.Errorf("M3U = %q, want %q", content, want)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	book, tracks := createTestBook()
	creator := NewPlaylistCreator(FormatM3U, true)

	content := creator.CreatePlaylist(book, tracks)

	if !strings.HasPrefix(content, "#EXTM3U\n") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:-1,Test Author - Chapter 1\nChapter 1.mp3\n") {
		t.Errorf("Extended M3U missing entry, got %q", content)
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	book, tracks := createTestBook()
	creator := NewPlaylistCreator(FormatPLS, false)

	content := creator.CreatePlaylist(book, tracks)

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	if !strings.Contains(content, "File2=Chapter 2.MP3") {
		t.Error("PLS should contain File2=")
	}
	if !strings.Contains(content, "NumberOfEntries=2") {
		t.Error("PLS should contain NumberOfEntries")
	}
}

func TestPlaylistCreator_PlaylistPath(t *testing.T) {
	book, _ := createTestBook()
	dir := filepath.Join("lib", "Test Author", "Test꞉ Book")

	tests := []struct {
		format PlaylistFormat
		want   string
	}{
		{FormatM3U, filepath.Join(dir, "Test꞉ Book.m3u")},
		{FormatPLS, filepath.Join(dir, "Test꞉ Book.pls")},
	}

	for _, tt := range tests {
		got := NewPlaylistCreator(tt.format, true).PlaylistPath(book, dir)
		if got != tt.want {
			t.Errorf("PlaylistPath() = %q, want %q", got, tt.want)
		}
	}
}

func TestParsePlaylistFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    PlaylistFormat
		wantErr bool
	}{
		{"", FormatM3U, false},
		{"M3U", FormatM3U, false},
		{"pls", FormatPLS, false},
		{"wpl", FormatM3U, true},
	}

	for _, tt := range tests {
		got, err := ParsePlaylistFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePlaylistFormat(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParsePlaylistFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
