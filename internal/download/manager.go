package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/handiism/libro-downloader/internal/audio"
	"github.com/handiism/libro-downloader/internal/config"
	"github.com/handiism/libro-downloader/internal/extract"
	"github.com/handiism/libro-downloader/internal/http"
	ioutils "github.com/handiism/libro-downloader/internal/io"
	"github.com/handiism/libro-downloader/internal/libro"
	"github.com/handiism/libro-downloader/internal/model"
)

// CoverFileName is the name cover art is saved under in each book directory.
const CoverFileName = "cover.jpg"

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a pipeline progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Session is the authenticated transport the Manager downloads through.
// *http.Client from internal/http satisfies it.
type Session interface {
	Get(ctx context.Context, url string) ([]byte, error)
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) (int64, error)
}

// Report summarizes a run.
type Report struct {
	RunID             string
	Books             int
	BooksWithoutLinks int
	FilesDownloaded   int
	FilesFailed       int
	BytesDownloaded   int64
	ArchivesExtracted int
	RenamesSkipped    int
}

// Manager runs the library pipeline once: catalog, link resolution,
// downloads and, for archives, extraction and finishing.
type Manager struct {
	settings     *config.Settings
	format       model.Format
	session      Session
	catalog      *libro.Catalog
	resolver     *libro.Resolver
	extractor    *extract.Extractor
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService

	runID  string
	logger *zap.Logger
	books  []*model.Book
	report Report

	onProgress func(ProgressEvent)

	// OnTransfer, if set, receives byte progress while a file downloads.
	// total is -1 when the server does not announce a length. A call with
	// written == total marks the end of the transfer, failed or not.
	OnTransfer func(path string, written, total int64)
}

// NewManager creates a Manager for one run. The download format is taken
// from settings and must already be valid.
func NewManager(settings *config.Settings, session Session, logger *zap.Logger, onProgress func(ProgressEvent)) (*Manager, error) {
	format, err := settings.Format()
	if err != nil {
		return nil, err
	}

	resolver, err := libro.NewResolver(session, settings.Library.BaseURL, format)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	runID := newRunID()
	logger = logger.With(zap.String("run_id", runID))

	m := &Manager{
		settings:     settings,
		format:       format,
		session:      session,
		catalog:      libro.NewCatalog(session, settings.ExportURL()),
		resolver:     resolver,
		extractor:    extract.New(logger.With(zap.String("stage", "extract"))),
		tagger:       audio.NewTagger(audio.DefaultTagConfig()),
		playlist:     audio.NewPlaylistCreator(settings.PlaylistFormat(), settings.Finish.M3UExtended),
		imageService: ioutils.NewImageService(),
		runID:        runID,
		logger:       logger,
		onProgress:   onProgress,
	}
	m.report.RunID = runID
	m.extractor.OnArchive = func(book *model.Book, archive string, index, total int) {
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("(%d / %d) Extracting %s...", index, total, archive),
			Level:   LevelInfo,
		}, zap.String("stage", "extract"), zap.String("title", book.Title))
	}

	return m, nil
}

// RunID returns the identifier attached to every log line of this run.
func (m *Manager) RunID() string {
	return m.runID
}

// Catalog returns the books in the library export. The export is fetched
// once per Manager.
func (m *Manager) Catalog(ctx context.Context) ([]*model.Book, error) {
	books, err := m.catalog.Books(ctx)
	if err != nil {
		m.logger.Error("catalog fetch failed", zap.String("stage", "catalog"), zap.Error(err))
		return nil, err
	}
	return books, nil
}

// Initialize fetches the catalog and resolves the download links of every
// book. A catalog failure is returned; a book whose page fails or offers no
// link is reported and left without links.
func (m *Manager) Initialize(ctx context.Context) error {
	books, err := m.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("library catalog: %w", err)
	}
	m.books = books
	m.report.Books = len(books)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Found %d books in library", len(books)), Level: LevelInfo},
		zap.String("stage", "catalog"))

	for i, book := range books {
		if err := ctx.Err(); err != nil {
			return err
		}

		fields := []zap.Field{zap.String("stage", "resolve"), zap.String("title", book.Title), zap.String("url", book.URL)}
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("(%d / %d) Fetching download links for %s", i+1, len(books), book.Title),
			Level:   LevelVerbose,
		}, fields...)

		res, err := m.resolver.Resolve(ctx, book)
		if res != nil {
			book.Links = res.Links
			book.CoverURL = res.CoverURL
		}

		switch {
		case errors.Is(err, model.ErrNoLinks):
			m.report.BooksWithoutLinks++
			m.progress(ProgressEvent{Message: fmt.Sprintf("No %s download links for %s", m.format, book.Title), Level: LevelWarning}, fields...)
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.report.BooksWithoutLinks++
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error fetching links for %s: %v", book.Title, err), Level: LevelError},
				append(fields, zap.Error(err))...)
		default:
			m.progress(ProgressEvent{Message: fmt.Sprintf("Found %d download link(s) for %s", len(book.Links), book.Title), Level: LevelVerbose}, fields...)
		}
	}

	return nil
}

// Books returns the books loaded by Initialize.
func (m *Manager) Books() []*model.Book {
	return m.books
}

// StartDownloads downloads the links of every initialized book, one file at
// a time. Books without links are skipped. A file that fails in transport is
// reported and the run moves on; cancellation and filesystem errors stop it.
func (m *Manager) StartDownloads(ctx context.Context) error {
	for i, book := range m.books {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !book.HasLinks() {
			continue
		}

		m.progress(ProgressEvent{
			Message: fmt.Sprintf("(%d / %d) Downloading %s by %s...", i+1, len(m.books), book.Title, book.Authors),
			Level:   LevelInfo,
		}, zap.String("stage", "download"), zap.String("title", book.Title))

		if err := m.DownloadBook(ctx, book); err != nil {
			return err
		}
	}
	return nil
}

// DownloadBook downloads every link of book into its directory.
//
// It returns model.ErrNoDownloadLinks if the book's links were never
// resolved. Transport failures of single files are reported, not returned;
// the partial file is already removed by the session. Filesystem errors stop
// the run.
func (m *Manager) DownloadBook(ctx context.Context, book *model.Book) error {
	if !book.HasLinks() {
		return fmt.Errorf("%q: %w", book.Title, model.ErrNoDownloadLinks)
	}

	dir := book.Dir(m.settings.Download.OutputDir)
	taken := make(map[string]bool, len(book.Links))
	for _, f := range book.Files {
		taken[f.Path] = true
	}

	if !m.settings.Download.DryRun {
		if err := ioutils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	for _, link := range book.Links {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := model.UniquePath(filepath.Join(dir, link.FileName), taken)
		taken[path] = true
		fields := []zap.Field{zap.String("stage", "download"), zap.String("title", book.Title), zap.String("url", link.URL), zap.String("path", path)}

		if m.settings.Download.DryRun {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Would download %s", path), Level: LevelInfo}, fields...)
			continue
		}

		var onBytes func(written, total int64)
		if m.OnTransfer != nil {
			onBytes = func(written, total int64) { m.OnTransfer(path, written, total) }
		}

		n, err := m.session.DownloadFile(ctx, link.URL, path, onBytes)
		if m.OnTransfer != nil {
			m.OnTransfer(path, n, n)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.report.FilesFailed++
			var terr *http.TransportError
			if !errors.As(err, &terr) {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing %s: %v", path, err), Level: LevelError},
					append(fields, zap.Error(err))...)
				return fmt.Errorf("write %s: %w", path, err)
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", link.FileName, err), Level: LevelError},
				append(fields, zap.Error(err))...)
			continue
		}

		book.Files = append(book.Files, &model.DownloadedFile{Link: link, Path: path, Bytes: n})
		m.report.FilesDownloaded++
		m.report.BytesDownloaded += n
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s (%s)", filepath.Base(path), formatBytes(n)), Level: LevelVerbose},
			append(fields, zap.Int64("bytes", n))...)
	}

	return nil
}

// Finish runs the steps after downloading: cover art, and in archive mode
// extraction, renaming, tagging and playlists. Extraction is refused for
// the whole run with model.ErrMissingDownloads if any book has no
// downloaded file.
func (m *Manager) Finish(ctx context.Context) error {
	if m.settings.Download.DryRun {
		return nil
	}

	covers := make(map[*model.Book][]byte)
	if m.settings.Finish.SaveCoverArt {
		for _, book := range m.books {
			if len(book.Files) == 0 || book.CoverURL == "" {
				continue
			}
			if cover, err := m.saveCover(ctx, book); err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving cover art for %s: %v", book.Title, err), Level: LevelWarning},
					zap.String("stage", "cover"), zap.String("title", book.Title), zap.Error(err))
			} else {
				covers[book] = cover
			}
		}
	}

	if !m.format.IsArchive() {
		return nil
	}

	results, err := m.extractor.ExtractAll(ctx, m.books)
	for _, res := range results {
		m.report.ArchivesExtracted += len(res.Archives)
		m.report.RenamesSkipped += len(res.Skipped)
		for _, skipped := range res.Skipped {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Kept %s: renamed file already exists", filepath.Base(skipped)), Level: LevelWarning},
				zap.String("stage", "rename"), zap.String("title", res.Book.Title))
		}
	}
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Extraction stopped: %v", err), Level: LevelError},
			zap.String("stage", "extract"), zap.Error(err))
		return fmt.Errorf("extract: %w", err)
	}

	for _, res := range results {
		m.finishBook(res, covers[res.Book])
	}

	return nil
}

// finishBook tags and lists the extracted tracks of one book directory.
func (m *Manager) finishBook(res *extract.Result, cover []byte) {
	book := res.Book
	tracks := audio.TracksFromFiles(res.Files)
	fields := []zap.Field{zap.String("stage", "finish"), zap.String("title", book.Title)}

	if m.settings.Finish.ModifyTags {
		for _, track := range tracks {
			if err := m.tagger.SaveTags(track, book, cover); err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", filepath.Base(track.Path), err), Level: LevelWarning},
					append(fields, zap.Error(err))...)
			}
		}
	}

	if m.settings.Finish.CreatePlaylist && len(tracks) > 0 {
		path := m.playlist.PlaylistPath(book, res.Dir)
		content := m.playlist.CreatePlaylist(book, tracks)
		if err := ioutils.WriteFile(path, []byte(content)); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning},
				append(fields, zap.Error(err))...)
		} else {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist for %s", book.Title), Level: LevelVerbose}, fields...)
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s (%d tracks)", book.Title, len(tracks)), Level: LevelSuccess}, fields...)
}

// saveCover downloads the book's cover, converts it to a bounded JPEG and
// writes it next to the book's files.
func (m *Manager) saveCover(ctx context.Context, book *model.Book) ([]byte, error) {
	data, err := m.session.Get(ctx, book.CoverURL)
	if err != nil {
		return nil, err
	}

	cover, err := m.imageService.PrepareCover(data, m.settings.Finish.CoverArtMaxSize)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(book.Dir(m.settings.Download.OutputDir), CoverFileName)
	if err := ioutils.WriteFile(path, cover); err != nil {
		return nil, err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved cover art for %s", book.Title), Level: LevelVerbose},
		zap.String("stage", "cover"), zap.String("title", book.Title), zap.String("url", book.CoverURL))
	return cover, nil
}

// Run executes the whole pipeline and returns its report.
func (m *Manager) Run(ctx context.Context) (*Report, error) {
	if err := m.Initialize(ctx); err != nil {
		return m.Report(), err
	}
	if err := m.StartDownloads(ctx); err != nil {
		return m.Report(), err
	}
	if err := m.Finish(ctx); err != nil {
		return m.Report(), err
	}

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Done: %d file(s), %s", m.report.FilesDownloaded, formatBytes(m.report.BytesDownloaded)),
		Level:   LevelSuccess,
	})
	return m.Report(), nil
}

// Report returns a snapshot of the run's counters.
func (m *Manager) Report() *Report {
	r := m.report
	return &r
}

func (m *Manager) progress(event ProgressEvent, fields ...zap.Field) {
	if ce := m.logger.Check(logLevel(event.Level), event.Message); ce != nil {
		ce.Write(fields...)
	}
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

func logLevel(level ProgressLevel) zapcore.Level {
	switch level {
	case LevelVerbose:
		return zapcore.DebugLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// formatBytes renders n with a binary unit, e.g. "1.5 MiB".
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
