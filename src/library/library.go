// Package library deals with the media library itself. It scans the
// configured directories, reads the files' tags into an SQLite database,
// watches the directories for changes and hands every analyzable file over
// to the analysis queue. Every media file receives an ID in the library and
// that ID is what the rest of the program works with.
package library

import (
	"github.com/spisarov/cadenza/src/analyze"
)

// TrackInfo contains a track's metadata as stored in the library database.
type TrackInfo struct {
	ID          int64
	Title       string
	Artist      string
	Album       string
	TrackNumber int64

	// Format is the media format guessed from the file's extension,
	// e.g. "mp3".
	Format string

	// Duration is the track length in milliseconds.
	Duration int64

	// BPM and MusicalKey are the analysis results. Nil until the analysis
	// pipeline has processed the file.
	BPM        *int
	MusicalKey *string

	// Size is the file size in bytes and LastModified its modification
	// time as Unix milliseconds, both as of the last scan.
	Size         int64
	LastModified int64

	CreatedAt int64
}

// Library is the media library interface. It is responsible for scanning
// the library directories, watching them for new files and looking up media
// by ID or search term.
type Library interface {
	// AddLibraryPath adds a directory to the library's scan locations.
	AddLibraryPath(string)

	// Search matches the term against the track title, artist and album
	// and returns everything which matches any of them.
	Search(string) []TrackInfo

	// GetFilePath returns the real filesystem path of a track by its ID.
	GetFilePath(int64) string

	// Scan starts a background scan of all library paths.
	Scan()

	// Initialize brings the library database to the current schema. Called
	// once on every start.
	Initialize() error

	// Truncate makes the library forget everything and closes it.
	Truncate() error

	// Close frees all resources used by the library.
	Close()
}

// Enqueuer is the analysis side of the pipeline as the library sees it. The
// library hands files over and never hears back directly, results arrive
// through its UpdateSong method.
type Enqueuer interface {
	Enqueue(task analyze.Task)
}
