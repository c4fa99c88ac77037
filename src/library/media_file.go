package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"

	"github.com/spisarov/cadenza/src/helpers"
)

// MediaFile is an interface which a media object should satisfy in order to
// be inserted in the library database.
type MediaFile interface {

	// Artist returns a string which represents the artist responsible for
	// this media file.
	Artist() string

	// Album returns a string for the name of the album this media file is
	// part of.
	Album() string

	// Title returns the name of this piece of media.
	Title() string

	// Track returns the media track number in its album.
	Track() int

	// Length returns the duration of this piece of media.
	Length() time.Duration
}

// fileMedia implements MediaFile for a real file on the filesystem.
type fileMedia struct {
	artist string
	album  string
	title  string
	track  int
	length time.Duration
}

func (m *fileMedia) Artist() string        { return m.artist }
func (m *fileMedia) Album() string         { return m.album }
func (m *fileMedia) Title() string         { return m.title }
func (m *fileMedia) Track() int            { return m.track }
func (m *fileMedia) Length() time.Duration { return m.length }

// readTagFromFile reads a file's metadata into a MediaFile. It is a package
// variable so that tests could stub it out and feed the library mock media
// without real audio files.
var readTagFromFile = func(path string) (MediaFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening media file: %w", err)
	}
	defer file.Close()

	media := &fileMedia{}

	metadata, err := tag.ReadFrom(file)
	if err == nil {
		media.artist = metadata.Artist()
		media.title = metadata.Title()
		media.album = metadata.Album()
		media.track, _ = metadata.Track()
	}

	// Many files in the wild have empty or missing tags. Such files still
	// deserve a library entry so their name fills the gaps.
	base := filepath.Base(path)
	if media.title == "" {
		media.title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if media.track == 0 {
		media.track = int(helpers.GuessTrackNumber(base))
	}

	// The tag reader does not know media durations, the tag writing
	// library does.
	if props, err := taglib.ReadProperties(path); err == nil {
		media.length = props.Length
	}

	return media, nil
}
