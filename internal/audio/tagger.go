package audio

import (
	"os"
	"strconv"

	"github.com/bogem/id3v2"

	"github.com/handiism/libro-downloader/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
//
// Each tag field can be configured independently to determine whether
// it should be modified, cleared, or left unchanged.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from the library export.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:  true,
//	    Artist:      TagModify,      // authors
//	    Album:       TagModify,      // book title
//	    TrackTitle:  TagDoNotModify, // keep the publisher's chapter titles
//	    Comments:    TagEmpty,
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no string tags are modified.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) frame, set to the authors.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 (Album artist) frame, set to the authors.
	AlbumArtist TagEditAction

	// Album controls the TALB (Album title) frame, set to the book title.
	Album TagEditAction

	// Composer controls the TCOM frame, set to the narrators.
	Composer TagEditAction

	// Year controls the TYER frame, taken from the publication date.
	Year TagEditAction

	// TrackNumber controls the TRCK (Track number) frame.
	TrackNumber TagEditAction

	// TrackTitle controls the TIT2 (Title) frame.
	TrackTitle TagEditAction

	// Comments controls the COMM (Comments) frame.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration.
//
// Every field is set to TagModify except comments, which are cleared.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		Composer:    TagModify,
		Year:        TagModify,
		TrackNumber: TagModify,
		TrackTitle:  TagModify,
		Comments:    TagEmpty,
	}
}

// Tagger writes ID3 tags to extracted MP3 tracks.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	for _, track := range TracksFromFiles(result.Files) {
//	    if err := tagger.SaveTags(track, book, cover); err != nil {
//	        log.Printf("Failed to tag %s: %v", track.Path, err)
//	    }
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes ID3 tags for book to the track's file.
//
// artwork is embedded as the front cover when non-nil; it should already be
// a JPEG.
func (t *Tagger) SaveTags(track *Track, book *model.Book, artwork []byte) error {
	tag, err := id3v2.Open(track.Path, id3v2.Options{Parse: true})
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		// Unparseable tag: start over rather than leave the track untagged.
		tag, err = id3v2.Open(track.Path, id3v2.Options{Parse: false})
		if err != nil {
			return err
		}
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if t.config.ModifyTags {
		t.updateStringTags(tag, track, book)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	return tag.Save()
}

func (t *Tagger) updateStringTags(tag *id3v2.Tag, track *Track, book *model.Book) {
	apply := func(action TagEditAction, id, value string) {
		switch action {
		case TagEmpty:
			tag.DeleteFrames(id)
		case TagModify:
			if value == "" {
				tag.DeleteFrames(id)
				return
			}
			tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
		}
	}

	apply(t.config.Artist, "TPE1", book.Authors)
	apply(t.config.AlbumArtist, "TPE2", book.Authors)
	apply(t.config.Album, "TALB", book.Title)
	apply(t.config.Composer, "TCOM", book.Narrators)
	apply(t.config.Year, "TYER", year(book.PublicationDate))
	apply(t.config.TrackTitle, "TIT2", track.Title)

	number := ""
	if track.Number > 0 {
		number = strconv.Itoa(track.Number)
	}
	apply(t.config.TrackNumber, "TRCK", number)

	if t.config.Comments == TagEmpty {
		tag.DeleteFrames(tag.CommonID("Comments"))
	}
}

// updateArtwork embeds cover art as an attached picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}

// year returns the leading four-digit year of an export date, or "".
func year(date string) string {
	if len(date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(date[:4]); err != nil {
		return ""
	}
	return date[:4]
}
