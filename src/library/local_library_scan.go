package library

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// scanItem is a single file found during a filesystem walk, along with the
// stat information the walk got for free.
type scanItem struct {
	path  string
	size  int64
	mtime time.Time
}

// Scan scans all of the folders in the library paths for media files. New
// and changed files are added to the database and enqueued for analysis.
func (lib *LocalLibrary) Scan() {
	// Make sure there are no other scans working at the moment.
	lib.WaitScan()

	start := time.Now()
	mediaChan := make(chan scanItem, 100)

	lib.scanWG.Add(1)
	go lib.databaseWriter(mediaChan, &lib.scanWG)

	for _, path := range lib.paths {
		lib.walkWG.Add(1)
		go lib.scanPath(path, mediaChan)
	}

	lib.scanWG.Add(1)
	go func() {
		defer lib.scanWG.Done()
		lib.walkWG.Wait()
		close(mediaChan)
	}()

	go func() {
		lib.WaitScan()
		log.Printf("Scanning took %s", time.Since(start))
	}()
}

// WaitScan blocks the current goroutine until the scan has finished.
func (lib *LocalLibrary) WaitScan() {
	lib.scanWG.Wait()
}

// scanPath walks a single library path and sends every supported file into
// the media channel. Directories are added to the filesystem watcher along
// the way when one is running.
func (lib *LocalLibrary) scanPath(scannedPath string, media chan<- scanItem) {
	start := time.Now()

	defer func() {
		log.Printf("Walking %s took %s", scannedPath, time.Since(start))
		lib.walkWG.Done()
	}()

	walkFunc := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Println(err)
			return nil
		}

		if lib.watch != nil && info.IsDir() {
			lib.watch.Watch(path)
		}

		if !info.IsDir() && lib.isSupportedFormat(path) {
			media <- scanItem{
				path:  path,
				size:  info.Size(),
				mtime: info.ModTime(),
			}
		}

		return nil
	}

	if err := filepath.Walk(scannedPath, walkFunc); err != nil {
		log.Println(err)
	}
}

// databaseWriter reads from the media channel and stores into the database
// every file received. It is the sole feeder of the analysis queue during a
// scan.
func (lib *LocalLibrary) databaseWriter(
	media <-chan scanItem,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	var (
		newFiles  int64
		sameFiles int64
		bytesSeen uint64
	)

	for item := range media {
		bytesSeen += uint64(item.size)

		changed, err := lib.addMedia(item)
		if err != nil {
			log.Printf("Error adding %s to the library: %s", item.path, err)
			continue
		}

		if changed {
			newFiles++
		} else {
			sameFiles++
		}
	}

	log.Printf("Scanned %s in %d files: %d new or changed, %d unchanged",
		humanize.Bytes(bytesSeen), newFiles+sameFiles, newFiles, sameFiles)
}

// rescanPath walks a directory which appeared after the initial scan and
// adds everything in it to the library, one file at a time.
func (lib *LocalLibrary) rescanPath(scannedPath string) {
	walkFunc := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Println(err)
			return nil
		}

		if lib.watch != nil && info.IsDir() {
			lib.watch.Watch(path)
		}

		if info.IsDir() || !lib.isSupportedFormat(path) {
			return nil
		}

		item := scanItem{path: path, size: info.Size(), mtime: info.ModTime()}
		if _, err := lib.addMedia(item); err != nil {
			log.Printf("Error adding %s to the library: %s", path, err)
		}

		return nil
	}

	if err := filepath.Walk(scannedPath, walkFunc); err != nil {
		log.Println(err)
	}
}

// addMedia adds a single file to the library database. Files whose size and
// modification time match their stored row are not read at all. In every
// case a file which still has no analysis results is handed to the analysis
// queue. Returns whether the file was actually (re)read.
func (lib *LocalLibrary) addMedia(item scanItem) (bool, error) {
	state, stateErr := lib.storedTrackState(item.path)
	if stateErr == nil &&
		state.size == item.size &&
		state.lastModified == item.mtime.UnixMilli() {

		if !state.hasAnalysis {
			lib.enqueueAnalysis(state.id, item)
		}
		return false, nil
	}
	if stateErr != nil && stateErr != ErrNotFound {
		return false, stateErr
	}

	media, err := readTagFromFile(item.path)
	if err != nil {
		return false, err
	}

	trackID, err := lib.insertMediaIntoDatabase(media, item)
	if err != nil {
		return false, err
	}

	lib.saveArtwork(trackID, item.path)

	if stateErr != nil || !state.hasAnalysis {
		lib.enqueueAnalysis(trackID, item)
	}

	return true, nil
}
