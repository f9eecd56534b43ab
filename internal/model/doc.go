// Package model defines the core data structures used throughout
// libro-downloader.
//
// # Book
//
// Book is one row of the libro.fm library export, together with the links
// and files produced for it by later stages:
//
//	book := &model.Book{Title: "Title", Authors: "Author"}
//	fmt.Println(book.Dir("library_out")) // library_out/Author/Title
//
// # Links and Files
//
// DownloadLink pairs a declared file name with its URL; DownloadedFile
// records where that link ended up on disk.
//
// # Format
//
// Format selects m4b single files or mp3 zip archives:
//
//	f, err := model.ParseFormat("mp3")
//	f.Marker()    // ".zip"
//	f.IsArchive() // true
package model
