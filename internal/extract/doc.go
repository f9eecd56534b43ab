// Package extract unpacks downloaded mp3 archives in place.
//
// For every book, each archive is extracted into its own directory and then
// deleted. When all of a book's archives are done, the files in the book
// directory are renamed to drop the track prefix the archives use:
//
//	Track 01 - My Book.mp3  ->  My Book.mp3
//
// ExtractAll refuses to start unless every book has at least one downloaded
// file.
package extract
