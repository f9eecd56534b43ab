package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/libro-downloader/internal/model"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func bookWithFiles(title string, paths ...string) *model.Book {
	b := &model.Book{Title: title, Authors: "Author"}
	for _, p := range paths {
		b.Files = append(b.Files, &model.DownloadedFile{Path: p})
	}
	return b
}

func TestStripTrackPrefix(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Track 01 - My Book.mp3", "My Book.mp3"},
		{"cover.jpg", "cover.jpg"},
		{"01 - Part - Two.mp3", "Part - Two.mp3"},
		{"No-Dash-Spacing.mp3", "No-Dash-Spacing.mp3"},
		{"Trailing - ", "Trailing - "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTrackPrefix(tt.name))
		})
	}
}

func TestExtractAll(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Author", "My Book")
	archive := filepath.Join(dir, "My Book.zip")
	writeZip(t, archive, map[string]string{
		"Track 01 - My Book.mp3":  "one",
		"Track 02 - Epilogue.mp3": "two",
		"cover.jpg":               "jpeg",
	})

	var seen []string
	e := New(nil)
	e.OnArchive = func(book *model.Book, path string, index, total int) {
		seen = append(seen, path)
		assert.Equal(t, 1, total)
	}

	results, err := e.ExtractAll(context.Background(), []*model.Book{bookWithFiles("My Book", archive)})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []string{archive}, seen)
	assert.NoFileExists(t, archive)
	assert.Equal(t, []string{
		filepath.Join(dir, "My Book.mp3"),
		filepath.Join(dir, "Epilogue.mp3"),
		filepath.Join(dir, "cover.jpg"),
	}, results[0].Files)
	assert.Empty(t, results[0].Skipped)

	data, err := os.ReadFile(filepath.Join(dir, "My Book.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestExtractAll_TwoArchivesRenamedOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Author", "Long Book")
	first := filepath.Join(dir, "Part 1.zip")
	second := filepath.Join(dir, "Part 2.zip")
	writeZip(t, first, map[string]string{"Track 01 - Chapter - One.mp3": "1"})
	writeZip(t, second, map[string]string{"Track 02 - Chapter - Two.mp3": "2"})

	results, err := New(nil).ExtractAll(context.Background(), []*model.Book{bookWithFiles("Long Book", first, second)})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []string{first, second}, results[0].Archives)
	assert.FileExists(t, filepath.Join(dir, "Chapter - One.mp3"))
	assert.FileExists(t, filepath.Join(dir, "Chapter - Two.mp3"))
}

func TestExtractAll_MissingDownloadsGate(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a", "Ready.zip")
	writeZip(t, archive, map[string]string{"Track 01 - Ready.mp3": "x"})

	books := []*model.Book{
		bookWithFiles("Ready", archive),
		bookWithFiles("Never Downloaded"),
	}

	results, err := New(nil).ExtractAll(context.Background(), books)
	assert.ErrorIs(t, err, model.ErrMissingDownloads)
	assert.Nil(t, results)
	assert.FileExists(t, archive, "gate must run before any extraction")
}

func TestExtract_RejectsUnsafePaths(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "book", "evil.zip")
	writeZip(t, archive, map[string]string{"../../escape.mp3": "x"})

	_, err := New(nil).Extract(archive, filepath.Dir(archive))
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(dir, "escape.mp3"))
}

func TestRenameTracks_SkipsExistingTarget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "My Book.mp3"), []byte("keep"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Track 01 - My Book.mp3"), []byte("new"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Disc 1 - Extras"), 0755))

	files, skipped, err := New(nil).RenameTracks(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "Track 01 - My Book.mp3")}, skipped)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "My Book.mp3"),
		filepath.Join(dir, "Track 01 - My Book.mp3"),
	}, files)
	assert.DirExists(t, filepath.Join(dir, "Disc 1 - Extras"))

	data, err := os.ReadFile(filepath.Join(dir, "My Book.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestRenameTracks_ReplacesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	// Left behind by an earlier run.
	write("My Book.mp3", "old")
	write("B - C.mp3", "old")
	// Written by this extraction.
	write("Track 01 - My Book.mp3", "new")
	write("A - B - C.mp3", "new")
	write("Track 02 - My Book.mp3", "dup")

	fresh := map[string]bool{
		"Track 01 - My Book.mp3": true,
		"A - B - C.mp3":          true,
		"Track 02 - My Book.mp3": true,
	}
	files, skipped, err := New(nil).RenameTracks(dir, fresh)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "B - C.mp3"),
		filepath.Join(dir, "My Book.mp3"),
		filepath.Join(dir, "Track 02 - My Book.mp3"),
	}, files)
	assert.Equal(t, []string{filepath.Join(dir, "Track 02 - My Book.mp3")}, skipped)

	for name, want := range map[string]string{"My Book.mp3": "new", "B - C.mp3": "new"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(data), name)
	}
	assert.NoFileExists(t, filepath.Join(dir, "C.mp3"))
	assert.NoFileExists(t, filepath.Join(dir, "Track 01 - My Book.mp3"))
}

func TestExtractAll_RerunOverwrites(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "Author", "Book", "Book.zip")
	entries := map[string]string{"Track 01 - One.mp3": "1", "Track 02 - Two.mp3": "2"}

	for i := 0; i < 2; i++ {
		writeZip(t, archive, entries)
		_, err := New(nil).ExtractAll(context.Background(), []*model.Book{bookWithFiles("Book", archive)})
		require.NoError(t, err)
	}

	names, err := os.ReadDir(filepath.Dir(archive))
	require.NoError(t, err)
	var got []string
	for _, n := range names {
		got = append(got, n.Name())
	}
	assert.Equal(t, []string{"One.mp3", "Two.mp3"}, got)
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		path string
		safe bool
	}{
		{"track.mp3", true},
		{"disc1/track.mp3", true},
		{"./track.mp3", true},
		{"../track.mp3", false},
		{"a/../../track.mp3", false},
		{"/etc/passwd", false},
		{"..\\track.mp3", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.safe, isSafePath(tt.path))
		})
	}
}
