// Package libro reads a libro.fm account: the library export and the
// per-book detail pages.
//
// # Catalog
//
// Catalog downloads the library export CSV once per run and turns every row
// into a model.Book:
//
//	catalog := libro.NewCatalog(client, "https://libro.fm/user/library/export.csv")
//	books, err := catalog.Books(ctx)
//
// # Resolver
//
// Resolver fetches a book's detail page and collects its "Download N" links,
// optionally keeping only one packaging:
//
//	resolver := libro.NewResolver(client, "https://libro.fm", model.FormatMP3)
//	res, err := resolver.Resolve(ctx, book)
//	if errors.Is(err, model.ErrNoLinks) {
//	    // warn and move on
//	}
package libro
