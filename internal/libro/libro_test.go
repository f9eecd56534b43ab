package libro

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/libro-downloader/internal/model"
)

// fakeGetter serves canned bodies keyed by URL.
type fakeGetter struct {
	pages map[string]string
	errs  map[string]error
	calls atomic.Int32
}

func (f *fakeGetter) Get(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, errors.New("not found: " + url)
	}
	return []byte(page), nil
}

const exportURL = "https://libro.fm/user/library/export.csv"

const exportCSV = "\ufeffTitle,Author(s),Narrator(s),ISBN,Publication Date,Date Purchased,URL\n" +
	"The Hobbit,J.R.R. Tolkien,Andy Serkis,9780358439196,2020-09-22,2023-01-05,https://libro.fm/user/library/9780358439196\n" +
	"\"Dune: Part One\",Frank Herbert,\"Scott Brick, Simon Vance\",,1965-08-01,2023-02-10,https://libro.fm/user/library/dune\n"

func TestParseExport(t *testing.T) {
	books, err := ParseExport(strings.NewReader(exportCSV))
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, &model.Book{
		Title:           "The Hobbit",
		Authors:         "J.R.R. Tolkien",
		Narrators:       "Andy Serkis",
		ISBN:            9780358439196,
		PublicationDate: "2020-09-22",
		PurchasedDate:   "2023-01-05",
		URL:             "https://libro.fm/user/library/9780358439196",
	}, books[0])

	assert.Equal(t, "Dune: Part One", books[1].Title)
	assert.Equal(t, "Scott Brick, Simon Vance", books[1].Narrators)
	assert.Zero(t, books[1].ISBN)
}

func TestParseExport_Tolerance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []*model.Book
	}{
		{
			name:  "empty body",
			input: "",
			want:  []*model.Book{},
		},
		{
			name:  "header only",
			input: "Title,Author(s)\n",
			want:  []*model.Book{},
		},
		{
			name:  "missing columns default to empty",
			input: "Title,URL\nSolo,https://libro.fm/x\n",
			want:  []*model.Book{{Title: "Solo", URL: "https://libro.fm/x"}},
		},
		{
			name:  "reordered columns and bad isbn",
			input: "ISBN,Author(s),Title\nnot-a-number,Ann Leckie,Ancillary Justice\n",
			want:  []*model.Book{{Title: "Ancillary Justice", Authors: "Ann Leckie"}},
		},
		{
			name:  "short row and blank lines",
			input: "Title,Author(s),ISBN\nShort\n\n,,\n",
			want:  []*model.Book{{Title: "Short"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExport(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_BooksIsMemoized(t *testing.T) {
	getter := &fakeGetter{pages: map[string]string{exportURL: exportCSV}}
	catalog := NewCatalog(getter, exportURL)

	first, err := catalog.Books(context.Background())
	require.NoError(t, err)
	second, err := catalog.Books(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Same(t, first[0], second[0])
	assert.Equal(t, int32(1), getter.calls.Load())
}

func TestCatalog_BooksConcurrent(t *testing.T) {
	getter := &fakeGetter{pages: map[string]string{exportURL: exportCSV}}
	catalog := NewCatalog(getter, exportURL)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			books, err := catalog.Books(context.Background())
			assert.NoError(t, err)
			assert.Len(t, books, 2)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, getter.calls.Load(), int32(8))
	_, err := catalog.Books(context.Background())
	require.NoError(t, err)
}

func TestCatalog_BooksErrorNotCached(t *testing.T) {
	boom := errors.New("HTTP 500")
	getter := &fakeGetter{errs: map[string]error{exportURL: boom}}
	catalog := NewCatalog(getter, exportURL)

	_, err := catalog.Books(context.Background())
	assert.ErrorIs(t, err, boom)

	delete(getter.errs, exportURL)
	getter.pages = map[string]string{exportURL: exportCSV}

	books, err := catalog.Books(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

const detailPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:image" content="/covers/some-title.jpg">
</head>
<body>
<a href="/user/library">Library</a>
<ul>
<li><a class="btn" href="/user/library/download?file=Some%20Title.zip&amp;token=abc">Download 1 (MP3)</a></li>
<li><a class="btn" href="/user/library/download?file=Other%28Title%29.m4b&amp;token=def">Download 2 (M4B)</a></li>
</ul>
</body>
</html>`

func newTestResolver(t *testing.T, page string, format model.Format) *Resolver {
	t.Helper()
	getter := &fakeGetter{pages: map[string]string{"https://libro.fm/user/library/1": page}}
	r, err := NewResolver(getter, "https://libro.fm", format)
	require.NoError(t, err)
	return r
}

var detailBook = &model.Book{Title: "Some Title", URL: "https://libro.fm/user/library/1"}

func TestResolver_FormatFilter(t *testing.T) {
	tests := []struct {
		name     string
		format   model.Format
		wantName []string
		wantURL  []string
	}{
		{
			name:     "mp3 keeps archive",
			format:   model.FormatMP3,
			wantName: []string{"Some Title.zip"},
			wantURL:  []string{"https://libro.fm/user/library/download?file=Some%20Title.zip&token=abc"},
		},
		{
			name:     "m4b keeps media",
			format:   model.FormatM4B,
			wantName: []string{"Other(Title).m4b"},
			wantURL:  []string{"https://libro.fm/user/library/download?file=Other%28Title%29.m4b&token=def"},
		},
		{
			name:     "no filter keeps page order",
			format:   model.FormatNone,
			wantName: []string{"Some Title.zip", "Other(Title).m4b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestResolver(t, detailPage, tt.format).Resolve(context.Background(), detailBook)
			require.NoError(t, err)

			var names, urls []string
			for _, l := range res.Links {
				names = append(names, l.FileName)
				urls = append(urls, l.URL)
			}
			assert.Equal(t, tt.wantName, names)
			if tt.wantURL != nil {
				assert.Equal(t, tt.wantURL, urls)
			}
			assert.Equal(t, "https://libro.fm/covers/some-title.jpg", res.CoverURL)
		})
	}
}

func TestResolver_MarkerBeforeAnchor(t *testing.T) {
	page := `<p>Download 1 of 1: <a href="/dl?file=Book+One%27s.zip">here</a></p>
<p>Download 2 of 2:
<a href="/dl?file=Unrelated.zip">next line</a></p>`

	res, err := newTestResolver(t, page, model.FormatNone).Resolve(context.Background(), detailBook)
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "Book One's.zip", res.Links[0].FileName)
	assert.Equal(t, "https://libro.fm/dl?file=Book+One%27s.zip", res.Links[0].URL)
}

func TestResolver_MarkerInAttribute(t *testing.T) {
	page := `<a data-label="Download 1 of 1" href="/dl?file=Some%20Title.zip">MP3</a>
<a title="Library" href="/user/library">Back</a>`

	res, err := newTestResolver(t, page, model.FormatNone).Resolve(context.Background(), detailBook)
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "Some Title.zip", res.Links[0].FileName)
	assert.Equal(t, "https://libro.fm/dl?file=Some%20Title.zip", res.Links[0].URL)
}

func TestResolver_NoLinks(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		format model.Format
	}{
		{"no download anchors", `<a href="/user/library">Library</a>`, model.FormatNone},
		{"all filtered out", detailPage[:strings.Index(detailPage, "<li><a class=\"btn\" href=\"/user/library/download?file=Other")], model.FormatM4B},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestResolver(t, tt.page, tt.format).Resolve(context.Background(), detailBook)
			assert.ErrorIs(t, err, model.ErrNoLinks)
			require.NotNil(t, res)
			assert.Empty(t, res.Links)
		})
	}
}

func TestResolver_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("HTTP 404")
	getter := &fakeGetter{errs: map[string]error{detailBook.URL: boom}}
	r, err := NewResolver(getter, "https://libro.fm", model.FormatNone)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), detailBook)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrNoLinks)
}

func TestResolver_SanitizesAndFallsBack(t *testing.T) {
	page := `<a href="/dl?file=What%3F%20A%2FB.zip">Download 1</a>
<a href="https://cdn.libro.fm/files/Plain.m4b?sig=1">Download 2</a>`

	res, err := newTestResolver(t, page, model.FormatNone).Resolve(context.Background(), detailBook)
	require.NoError(t, err)
	require.Len(t, res.Links, 2)
	assert.Equal(t, "What？ A／B.zip", res.Links[0].FileName)
	assert.Equal(t, "Plain.m4b", res.Links[1].FileName)
	assert.Equal(t, "https://cdn.libro.fm/files/Plain.m4b?sig=1", res.Links[1].URL)
}

func TestResolver_EmptyNameAfterSanitizing(t *testing.T) {
	page := `<a href="/dl?file=..">Download 1</a>
<a href="/dl?file=%20.%20">Download 2</a>`

	res, err := newTestResolver(t, page, model.FormatNone).Resolve(context.Background(), detailBook)
	require.NoError(t, err)
	require.Len(t, res.Links, 2)
	for _, link := range res.Links {
		assert.Equal(t, "download", link.FileName, link.URL)
	}
}

func TestDecodeFileName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Some%20Title.zip", "Some Title.zip"},
		{"Other%28Title%29.m4b", "Other(Title).m4b"},
		{"My+Book%27s.zip", "My Book's.zip"},
		{"100%+Pure%28Gold%29.zip", "100% Pure(Gold).zip"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeFileName(tt.raw))
		})
	}
}
