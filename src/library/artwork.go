package library

import (
	"database/sql"
	"log"
	"time"

	"github.com/spisarov/cadenza/src/artwork"
)

// thumbnailWidth is the width in pixels of the stored artwork thumbnails.
const thumbnailWidth = 300

// findArtwork extracts the embedded artwork of a media file. A package
// variable so that tests could stub it out.
var findArtwork = artwork.FromFile

// saveArtwork stores a track's embedded artwork and its thumbnail in the
// database. Most files have no artwork and many have unreadable tags, both
// are routine and not worth a log line.
func (lib *LocalLibrary) saveArtwork(trackID int64, path string) {
	data, err := findArtwork(path)
	if err != nil {
		return
	}

	thumb, err := artwork.Thumbnail(data, thumbnailWidth)
	if err != nil {
		log.Printf("Error generating artwork thumbnail for %s: %s", path, err)
		thumb = nil
	}

	err = lib.executeDBJobAndWait(func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO
				tracks_artworks (track_id, artwork, artwork_thumb, updated_at)
			VALUES
				(?, ?, ?, ?)
			ON CONFLICT (track_id) DO UPDATE SET
				artwork = excluded.artwork,
				artwork_thumb = excluded.artwork_thumb,
				updated_at = excluded.updated_at
		`, trackID, data, thumb, time.Now().Unix())
		return err
	})
	if err != nil {
		log.Printf("Error saving artwork for %s: %s", path, err)
	}
}

// GetArtwork returns the full size artwork stored for a track. Returns
// ErrNotFound when there is none.
func (lib *LocalLibrary) GetArtwork(trackID int64) ([]byte, error) {
	return lib.getArtworkColumn(trackID, "artwork")
}

// GetArtworkThumbnail returns the thumbnail artwork stored for a track.
// Returns ErrNotFound when there is none.
func (lib *LocalLibrary) GetArtworkThumbnail(trackID int64) ([]byte, error) {
	return lib.getArtworkColumn(trackID, "artwork_thumb")
}

func (lib *LocalLibrary) getArtworkColumn(
	trackID int64,
	column string,
) ([]byte, error) {
	var data []byte

	err := lib.executeDBJobAndWait(func(db *sql.DB) error {
		return db.QueryRow(`
			SELECT `+column+`
			FROM tracks_artworks
			WHERE track_id = ?
		`, trackID).Scan(&data)
	})
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, ErrNotFound
	}

	return data, nil
}
