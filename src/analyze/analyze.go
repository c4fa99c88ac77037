// Package analyze implements the offline BPM and musical key analysis
// pipeline. Audio files are handed to an analysis queue by the library scan,
// the queue shells out to the aubio command line tool, parses its output
// into tempo and key estimates and stores the results in a JSON cache, in
// the file's own tags and in the library database.
//
// Nothing in this package may abort a library scan. Every failure of a
// single file's analysis ends in "this file has no BPM/key" and in nothing
// worse than that.
package analyze

import (
	"context"
	"time"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Storage

// Storage is the external collaborator which owns the song records. The
// analysis pipeline never reads songs, it only pushes updates into it.
type Storage interface {
	// UpdateSong applies the non-nil fields of `patch` to the song with ID
	// `songID`.
	UpdateSong(ctx context.Context, songID int64, patch SongPatch) error
}

// SongPatch is a partial update for a song record. Only non-nil fields are
// applied.
type SongPatch struct {
	// BPM is the tempo of the song in beats per minute.
	BPM *int

	// Key is the musical key label of the song, e.g. "C#m".
	Key *string

	// LastModified is the new modification time of the song's file. Sent
	// after a tag write changed the file so that the next library scan does
	// not mistake the write for a user edit.
	LastModified *time.Time
}

// Tool runs the external analysis binary. It exists as an interface so that
// the queue could be tested without spawning processes. The real
// implementation is ToolRunner.
type Tool interface {
	Run(ctx context.Context, args []string, opts RunOptions) RunResult
}

// Tagger persists BPM and key values into an audio file's tags. The real
// implementation is TagWriter.
type Tagger interface {
	// WriteTags returns whether the file was actually written. Writing
	// nothing because there is nothing to write is not an error.
	WriteTags(path string, bpm *int, key string) (bool, error)
}

// CacheEntry is a single analysis result as stored in the results cache.
type CacheEntry struct {
	// OK is true when the analysis produced usable results.
	OK bool `json:"ok"`

	// FilePath is the absolute path of the file at the time of analysis.
	// Informational only, the fingerprint is the authoritative key.
	FilePath string `json:"filePath"`

	// BPM is the tempo estimate in the range [30, 300] or nil.
	BPM *int `json:"bpm"`

	// Key is the musical key label or nil.
	Key *string `json:"key"`

	// Confidence is the combined confidence of the estimates in [0, 1].
	Confidence float64 `json:"confidence"`

	// UpdatedAt is the Unix time in milliseconds at which the entry was
	// written.
	UpdatedAt int64 `json:"updatedAt"`

	// TempoExitCode and PitchExitCode are the exit codes of the two tool
	// invocations. Diagnostic only. Nil when the invocation never produced
	// an exit code.
	TempoExitCode *int `json:"tempoExitCode"`
	PitchExitCode *int `json:"pitchExitCode"`

	// Error names the reason for a negative entry, e.g.
	// "aubio_not_installed".
	Error string `json:"error,omitempty"`
}

// HasResult returns true when the entry holds a usable BPM or key value.
func (e *CacheEntry) HasResult() bool {
	return e.OK && (e.BPM != nil || e.Key != nil)
}
