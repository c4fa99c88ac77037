package library

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/howeyc/fsnotify"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/spisarov/cadenza/src/analyze"
	"github.com/spisarov/cadenza/src/fingerprint"
)

// UnknownLabel will be used in case some media tag is missing. As a
// consequence if there are many files with missing artist only one artist
// named "Unknown" will show up in the library.
const UnknownLabel = "Unknown"

// LocalLibrary implements the Library interface. Represents files found on
// the local storage.
type LocalLibrary struct {
	database string   // The location of the library's database.
	paths    []string // Directories which contain the library's media files.

	// db is the database connection. It is only ever used by the database
	// worker goroutine, everything else sends work units to it.
	db         *sql.DB
	dbExecutes chan DatabaseExecutable

	ctx       context.Context
	ctxCancel context.CancelFunc
	workers   *errgroup.Group

	// queue is the analysis pipeline. Optional, a library without one just
	// never gets BPM and key values.
	queue Enqueuer

	scanWG sync.WaitGroup // Used in the WaitScan method.
	walkWG sync.WaitGroup // Tracks the filesystem walk goroutines.

	watch           *fsnotify.Watcher
	watchClosedChan chan bool

	cleanupLock    sync.RWMutex
	runningCleanup bool
}

var (
	_ Library         = (*LocalLibrary)(nil)
	_ analyze.Storage = (*LocalLibrary)(nil)
)

// NewLocalLibrary returns a LocalLibrary which uses for database the file
// specified by databasePath. The database worker is started right away, so
// the returned library must eventually be Close-d.
func NewLocalLibrary(ctx context.Context, databasePath string) (*LocalLibrary, error) {
	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	lib := &LocalLibrary{
		database:   databasePath,
		db:         db,
		dbExecutes: make(chan DatabaseExecutable),
		ctx:        ctx,
		ctxCancel:  cancel,
		workers:    new(errgroup.Group),
	}

	lib.workers.Go(lib.databaseWorker)

	return lib, nil
}

// Initialize brings the library database up to the current schema.
func (lib *LocalLibrary) Initialize() error {
	return lib.executeDBJobAndWait(func(db *sql.DB) error {
		return applyMigrations(db)
	})
}

// Close frees the library resources. It is safe to call it more than once.
func (lib *LocalLibrary) Close() {
	lib.stopWatcher()
	lib.ctxCancel()
	_ = lib.workers.Wait()

	if lib.db != nil {
		_ = lib.db.Close()
		lib.db = nil
	}
}

// Truncate makes the library forget everything. Also closes the library.
func (lib *LocalLibrary) Truncate() error {
	lib.Close()
	return os.Remove(lib.database)
}

// AddLibraryPath adds a directory to the library's scan locations.
func (lib *LocalLibrary) AddLibraryPath(path string) {
	if _, err := os.Stat(path); err != nil {
		log.Println(err)
		return
	}

	lib.paths = append(lib.paths, path)
}

// SetAnalysisQueue injects the analysis pipeline into the library. Must be
// called before Scan.
func (lib *LocalLibrary) SetAnalysisQueue(queue Enqueuer) {
	lib.queue = queue
}

// dbTracksQuery is the SELECT used everywhere track rows are read.
const dbTracksQuery = `
	SELECT
		id,
		name,
		artist,
		album,
		fs_path,
		number,
		duration,
		size,
		bpm,
		musical_key,
		last_modified,
		created_at
	FROM
		tracks
`

// scanTrackRow reads a single row produced by dbTracksQuery.
func scanTrackRow(rows interface{ Scan(...any) error }) (TrackInfo, error) {
	var (
		res    TrackInfo
		fsPath string

		bpm          sql.NullInt64
		musicalKey   sql.NullString
		lastModified sql.NullInt64
	)

	err := rows.Scan(&res.ID, &res.Title, &res.Artist, &res.Album, &fsPath,
		&res.TrackNumber, &res.Duration, &res.Size, &bpm, &musicalKey,
		&lastModified, &res.CreatedAt,
	)
	if err != nil {
		return res, err
	}

	res.Format = mediaFormatFromFileName(fsPath)
	if bpm.Valid {
		value := int(bpm.Int64)
		res.BPM = &value
	}
	if musicalKey.Valid && musicalKey.String != "" {
		value := musicalKey.String
		res.MusicalKey = &value
	}
	if lastModified.Valid {
		res.LastModified = lastModified.Int64
	}

	return res, nil
}

// Search returns all tracks whose title, artist or album matches the search
// term.
func (lib *LocalLibrary) Search(searchTerm string) []TrackInfo {
	var output []TrackInfo

	like := "%" + searchTerm + "%"

	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		rows, err := db.Query(dbTracksQuery+`
			WHERE
				name LIKE ? OR
				artist LIKE ? OR
				album LIKE ?
			ORDER BY
				artist, album, number
		`, like, like, like)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			res, err := scanTrackRow(rows)
			if err != nil {
				log.Printf("Error scanning search result: %s", err)
				continue
			}
			output = append(output, res)
		}

		return rows.Err()
	})
	if err != nil {
		log.Printf("Query not successful: %s", err)
	}

	return output
}

// GetTrack returns a single track by its ID.
func (lib *LocalLibrary) GetTrack(id int64) (TrackInfo, error) {
	var found TrackInfo

	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		rows, err := db.Query(dbTracksQuery+" WHERE id = ?", id)
		if err != nil {
			return err
		}
		defer rows.Close()

		if !rows.Next() {
			return ErrNotFound
		}

		found, err = scanTrackRow(rows)
		return err
	})

	return found, err
}

// GetFilePath returns the filesystem path of a track by its ID. Returns an
// empty string when the track is not in the library.
func (lib *LocalLibrary) GetFilePath(id int64) string {
	var filePath string

	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		return db.QueryRow(`
			SELECT
				fs_path
			FROM
				tracks
			WHERE
				id = ?
		`, id).Scan(&filePath)
	})
	if err != nil && err != sql.ErrNoRows {
		log.Println(err)
	}

	return filePath
}

// UpdateSong applies the non-nil fields of `patch` to the track with ID
// `songID`. This is how analysis results find their way into the database.
func (lib *LocalLibrary) UpdateSong(
	ctx context.Context,
	songID int64,
	patch analyze.SongPatch,
) error {
	var (
		set  []string
		args []any
	)

	if patch.BPM != nil {
		set = append(set, "bpm = ?")
		args = append(args, *patch.BPM)
	}
	if patch.Key != nil {
		set = append(set, "musical_key = ?")
		args = append(args, *patch.Key)
	}
	if patch.LastModified != nil {
		set = append(set, "last_modified = ?")
		args = append(args, patch.LastModified.UnixMilli())
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, songID)

	return lib.executeDBJobAndWait(func(db *sql.DB) error {
		res, err := db.ExecContext(
			ctx,
			"UPDATE tracks SET "+strings.Join(set, ", ")+" WHERE id = ?",
			args...,
		)
		if err != nil {
			return fmt.Errorf("updating track %d: %w", songID, err)
		}

		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// insertMediaIntoDatabase stores a media file's metadata in the database.
// Inserting the same fs_path again refreshes the stored metadata without
// losing the previously found bpm and key. Returns the track's ID.
func (lib *LocalLibrary) insertMediaIntoDatabase(
	media MediaFile,
	item scanItem,
) (int64, error) {
	artist := media.Artist()
	if artist == "" {
		artist = UnknownLabel
	}

	album := media.Album()
	if album == "" {
		album = UnknownLabel
	}

	title := media.Title()
	if title == "" {
		title = UnknownLabel
	}

	var trackID int64

	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO
				tracks (name, artist, album, fs_path, number, duration,
					size, last_modified, created_at)
			VALUES
				(?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (fs_path) DO UPDATE SET
				name = excluded.name,
				artist = excluded.artist,
				album = excluded.album,
				number = excluded.number,
				duration = excluded.duration,
				size = excluded.size,
				last_modified = excluded.last_modified
		`, title, artist, album, item.path, media.Track(),
			media.Length().Milliseconds(), item.size,
			item.mtime.UnixMilli(), time.Now().Unix(),
		)
		if err != nil {
			return err
		}

		return db.QueryRow(`
			SELECT id FROM tracks WHERE fs_path = ?
		`, item.path).Scan(&trackID)
	})
	if err != nil {
		return 0, err
	}

	return trackID, nil
}

// trackState is what the scan needs to know about an already stored track
// in order to decide whether to re-read and re-analyze its file.
type trackState struct {
	id           int64
	size         int64
	lastModified int64
	hasAnalysis  bool
}

// storedTrackState looks up a track by its filesystem path. Returns
// ErrNotFound for files which are new to the library.
func (lib *LocalLibrary) storedTrackState(path string) (trackState, error) {
	var (
		state trackState

		bpm        sql.NullInt64
		musicalKey sql.NullString
		lastMod    sql.NullInt64
	)

	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		return db.QueryRow(`
			SELECT
				id, size, last_modified, bpm, musical_key
			FROM
				tracks
			WHERE
				fs_path = ?
		`, path).Scan(&state.id, &state.size, &lastMod, &bpm, &musicalKey)
	})
	if err == sql.ErrNoRows {
		return state, ErrNotFound
	}
	if err != nil {
		return state, err
	}

	if lastMod.Valid {
		state.lastModified = lastMod.Int64
	}
	state.hasAnalysis = bpm.Valid || (musicalKey.Valid && musicalKey.String != "")

	return state, nil
}

// removeFile removes a file's entry and artwork from the library database.
func (lib *LocalLibrary) removeFile(filePath string) {
	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		var trackID int64
		err := db.QueryRow(`
			SELECT id FROM tracks WHERE fs_path = ?
		`, filePath).Scan(&trackID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := db.Exec(`
			DELETE FROM tracks WHERE id = ?
		`, trackID); err != nil {
			return err
		}

		_, err = db.Exec(`
			DELETE FROM tracks_artworks WHERE track_id = ?
		`, trackID)
		return err
	})
	if err != nil {
		log.Printf("Error removing %s from the database: %s", filePath, err)
	}
}

// removeDirectory removes all of a directory's files from the library
// database.
func (lib *LocalLibrary) removeDirectory(dirPath string) {
	// Adding slash to the end to make sure we are dealing with a directory.
	likePath := strings.TrimSuffix(dirPath, string(os.PathSeparator)) +
		string(os.PathSeparator) + "%"

	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		if _, err := db.Exec(`
			DELETE FROM tracks_artworks
			WHERE track_id IN (
				SELECT id FROM tracks WHERE fs_path LIKE ?
			)
		`, likePath); err != nil {
			return err
		}

		_, err := db.Exec(`
			DELETE FROM tracks WHERE fs_path LIKE ?
		`, likePath)
		return err
	})
	if err != nil {
		log.Printf("Error removing %s from the database: %s", dirPath, err)
	}
}

// enqueueAnalysis hands a file over to the analysis pipeline. The stat
// information from the scan walk is passed along so that the pipeline does
// not stat the file again.
func (lib *LocalLibrary) enqueueAnalysis(trackID int64, item scanItem) {
	if lib.queue == nil {
		return
	}

	lib.queue.Enqueue(analyze.Task{
		Path: item.path,
		StatHint: &fingerprint.StatHint{
			Size:    item.size,
			MTimeMs: item.mtime.UnixMilli(),
		},
		SongID:  trackID,
		Storage: lib,
	})
}
