package library

import (
	"database/sql"
	"log"
	"os"
	"time"
)

// cleanupBreak is the time the cleanup task will "rest" after doing a batch
// of its work.
var cleanupBreak = 5 * time.Second

// batchLimit is the size of the cleanup batch which will be selected from
// the database.
const batchLimit = 100

// Clean walks through all database records and removes those which point to
// files which no longer exist.
func (lib *LocalLibrary) Clean() {
	lib.cleanupLock.RLock()
	alreadyRunning := lib.runningCleanup
	lib.cleanupLock.RUnlock()

	if alreadyRunning {
		log.Println("Previous cleanup operation is already running.")
		return
	}

	lib.cleanupLock.Lock()
	lib.runningCleanup = true
	lib.cleanupLock.Unlock()

	defer func() {
		lib.cleanupLock.Lock()
		lib.runningCleanup = false
		lib.cleanupLock.Unlock()
	}()

	lib.cleanupTracks()
}

// cleanupTracks walks through all tracks in the database and removes any
// which are not present on the filesystem. It does that in batches with
// some rest between batches.
func (lib *LocalLibrary) cleanupTracks() {
	var cursor int

	for {
		var (
			tracks []track
			tr     track
		)

		getTracks := func(db *sql.DB) error {
			rows, err := db.Query(`
				SELECT
					id,
					fs_path
				FROM
					tracks
				ORDER BY
					id
				LIMIT ?, ?
			`, cursor, batchLimit)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				if err := rows.Scan(&tr.id, &tr.fsPath); err != nil {
					log.Printf("Scanning db error during track cleanup: %s", err)
					continue
				}
				tracks = append(tracks, tr)
			}

			return rows.Err()
		}

		if err := lib.executeDBJobAndWait(getTracks); err != nil {
			log.Printf("Error getting tracks during cleanup: %s", err)
			return
		}

		cursor += batchLimit

		lib.checkAndRemoveTracks(tracks)

		if len(tracks) < batchLimit {
			break
		}

		select {
		case <-time.After(cleanupBreak):
		case <-lib.ctx.Done():
			return
		}
	}
}

// checkAndRemoveTracks makes a stat call for all tracks and removes from
// the database any which do not exist.
func (lib *LocalLibrary) checkAndRemoveTracks(tracks []track) {
	for _, track := range tracks {
		_, err := os.Stat(track.fsPath)
		if err == nil || !os.IsNotExist(err) {
			continue
		}

		log.Printf("Cleaning up %d - '%s'\n", track.id, track.fsPath)
		lib.removeFile(track.fsPath)
	}
}

type track struct {
	id     int64
	fsPath string
}
