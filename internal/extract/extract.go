package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	ioutils "github.com/handiism/libro-downloader/internal/io"
	"github.com/handiism/libro-downloader/internal/model"
)

// TrackSeparator separates the track prefix from the title in archive
// entry names.
const TrackSeparator = " - "

// ErrUnsafePath is returned for an archive entry that would be written
// outside the destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Result describes what happened in one book directory.
type Result struct {
	Book *model.Book

	// Dir is the book directory the archives were extracted into.
	Dir string

	// Archives lists the archives that were extracted and removed.
	Archives []string

	// Files lists the regular files in Dir after renaming.
	Files []string

	// Skipped lists files left unrenamed because the target already existed.
	Skipped []string
}

// Extractor unpacks archives and normalizes the resulting file names.
type Extractor struct {
	logger *zap.Logger

	// OnArchive is called before each archive is extracted.
	OnArchive func(book *model.Book, archive string, index, total int)
}

// New creates an Extractor. A nil logger discards log output.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// ExtractAll extracts the downloaded archives of every book.
//
// It returns model.ErrMissingDownloads before touching the filesystem if any
// book has no downloaded file.
func (e *Extractor) ExtractAll(ctx context.Context, books []*model.Book) ([]*Result, error) {
	for _, book := range books {
		if len(book.DownloadedPaths()) == 0 {
			return nil, fmt.Errorf("%q: %w", book.Title, model.ErrMissingDownloads)
		}
	}

	total := 0
	for _, book := range books {
		total += len(book.DownloadedPaths())
	}

	results := make([]*Result, 0, len(books))
	index := 0
	for _, book := range books {
		byDir := make(map[string]*Result)
		fresh := make(map[string]map[string]bool)
		var dirs []string

		for _, archive := range book.DownloadedPaths() {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			index++
			if e.OnArchive != nil {
				e.OnArchive(book, archive, index, total)
			}

			dir := filepath.Dir(archive)
			res, ok := byDir[dir]
			if !ok {
				res = &Result{Book: book, Dir: dir}
				byDir[dir] = res
				dirs = append(dirs, dir)
			}

			extracted, err := e.Extract(archive, dir)
			if err != nil {
				return results, fmt.Errorf("extract %s: %w", archive, err)
			}
			if fresh[dir] == nil {
				fresh[dir] = make(map[string]bool)
			}
			for _, f := range extracted {
				if filepath.Dir(f) == dir {
					fresh[dir][filepath.Base(f)] = true
				}
			}
			if err := os.Remove(archive); err != nil {
				return results, fmt.Errorf("remove archive %s: %w", archive, err)
			}
			res.Archives = append(res.Archives, archive)
		}

		for _, dir := range dirs {
			res := byDir[dir]
			files, skipped, err := e.RenameTracks(dir, fresh[dir])
			if err != nil {
				return results, err
			}
			res.Files = files
			res.Skipped = skipped
			results = append(results, res)
		}
	}

	return results, nil
}

// Extract unpacks the zip archive at archivePath into destDir and returns the
// paths of the files it wrote. Existing files are overwritten.
func (e *Extractor) Extract(archivePath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var written []string
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return written, fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}

		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := ioutils.EnsureDir(target); err != nil {
				return written, err
			}
			continue
		}

		if err := ioutils.EnsureDir(filepath.Dir(target)); err != nil {
			return written, err
		}
		if err := extractFile(f, target); err != nil {
			return written, fmt.Errorf("%s: %w", f.Name, err)
		}
		written = append(written, target)
		e.logger.Debug("extracted", zap.String("archive", archivePath), zap.String("file", target))
	}

	return written, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}

// RenameTracks renames every regular file directly inside dir by dropping
// everything up to and including the first TrackSeparator. Names without the
// separator are left alone.
//
// fresh holds the names written by the current extraction. A rename onto a
// fresh name, or onto a name an earlier rename in this call produced, is
// skipped. Any other existing target is left over from a previous run and is
// replaced. A nil fresh treats every existing target as fresh.
//
// It returns the resulting paths, ordered naturally by their names before
// renaming so track order survives, and the skipped ones.
func (e *Extractor) RenameTracks(dir string, fresh map[string]bool) (files, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return ioutils.NaturalLess(entries[i].Name(), entries[j].Name())
	})

	renamed := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		newName := StripTrackPrefix(name)
		oldPath := filepath.Join(dir, name)
		if newName == name || renamed[name] {
			if !slices.Contains(files, oldPath) {
				files = append(files, oldPath)
			}
			continue
		}

		newPath := filepath.Join(dir, newName)
		if info, err := os.Lstat(newPath); err == nil {
			if fresh == nil || fresh[newName] || renamed[newName] || !info.Mode().IsRegular() {
				e.logger.Warn("rename target exists, keeping original name",
					zap.String("file", oldPath),
					zap.String("target", newPath))
				skipped = append(skipped, oldPath)
				files = append(files, oldPath)
				continue
			}
			e.logger.Debug("replacing file from a previous run", zap.String("target", newPath))
			files = slices.DeleteFunc(files, func(p string) bool { return p == newPath })
		}

		if err := os.Rename(oldPath, newPath); err != nil {
			return files, skipped, fmt.Errorf("rename %s: %w", oldPath, err)
		}
		renamed[newName] = true
		files = append(files, newPath)
	}

	return files, skipped, nil
}

// StripTrackPrefix removes everything through the first TrackSeparator.
//
// Example:
//
//	StripTrackPrefix("Track 01 - My Book.mp3") // "My Book.mp3"
//	StripTrackPrefix("cover.jpg")              // "cover.jpg"
func StripTrackPrefix(name string) string {
	_, after, found := strings.Cut(name, TrackSeparator)
	if !found || after == "" {
		return name
	}
	return after
}

// isSafePath reports whether a zip entry name stays inside the extraction
// directory.
func isSafePath(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return false
	}
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}
