package libro

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/handiism/libro-downloader/internal/model"
)

// Export column names.
const (
	ColumnTitle           = "Title"
	ColumnAuthors         = "Author(s)"
	ColumnNarrators       = "Narrator(s)"
	ColumnISBN            = "ISBN"
	ColumnPublicationDate = "Publication Date"
	ColumnPurchasedDate   = "Date Purchased"
	ColumnURL             = "URL"
)

// Getter fetches a URL with the authenticated session.
// *http.Client from internal/http satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Catalog is the user's library as listed by the export CSV.
//
// The export is fetched at most once per Catalog: concurrent callers share
// one request and later callers get the cached books. A failed fetch is not
// cached.
type Catalog struct {
	client    Getter
	exportURL string

	group singleflight.Group
	mu    sync.Mutex
	books []*model.Book
}

// NewCatalog creates a Catalog that reads the export from exportURL.
func NewCatalog(client Getter, exportURL string) *Catalog {
	return &Catalog{client: client, exportURL: exportURL}
}

// Books returns one Book per export row, in export order.
// Any transport error is returned as is; the caller should abort the run.
func (c *Catalog) Books(ctx context.Context) ([]*model.Book, error) {
	c.mu.Lock()
	if c.books != nil {
		books := c.books
		c.mu.Unlock()
		return books, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("export", func() (any, error) {
		data, err := c.client.Get(ctx, c.exportURL)
		if err != nil {
			return nil, fmt.Errorf("fetch library export: %w", err)
		}

		books, err := ParseExport(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse library export: %w", err)
		}

		c.mu.Lock()
		c.books = books
		c.mu.Unlock()
		return books, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Book), nil
}

// ParseExport reads the library export CSV.
//
// Columns are matched by header name, so their order does not matter.
// Missing columns read as empty text and a missing or non-numeric ISBN
// reads as 0. Rows may be shorter or longer than the header.
func ParseExport(r io.Reader) ([]*model.Book, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []*model.Book{}, nil
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.TrimSpace(name)] = i
	}

	books := []*model.Book{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(record) {
			continue
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		books = append(books, &model.Book{
			Title:           field(ColumnTitle),
			Authors:         field(ColumnAuthors),
			Narrators:       field(ColumnNarrators),
			ISBN:            parseISBN(field(ColumnISBN)),
			PublicationDate: field(ColumnPublicationDate),
			PurchasedDate:   field(ColumnPurchasedDate),
			URL:             strings.TrimSpace(field(ColumnURL)),
		})
	}

	return books, nil
}

func parseISBN(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
