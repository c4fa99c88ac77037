package library

import (
	"log"
	"os"

	"github.com/howeyc/fsnotify"
)

// StartWatching turns on the filesystem watching. Must be called before
// Scan so that the walk registers every directory it visits with the
// watcher.
func (lib *LocalLibrary) StartWatching() {
	lib.initializeWatcher()
}

// initializeWatcher creates the directory watcher if none was created
// before. On failure logs the problem and leaves the watcher uninitialized.
// The library works even without a watch, it just stops noticing changes.
func (lib *LocalLibrary) initializeWatcher() {
	if lib.watch != nil {
		return
	}
	newWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Directory watcher was not initialized properly. ")
		log.Printf("New files will not be added to the library. Reason: ")
		log.Println(err)
		return
	}
	lib.watch = newWatcher
	lib.watchClosedChan = make(chan bool)

	go lib.watchEventRoutine()
}

// stopWatcher stops the filesystem watching and all supporting goroutines.
func (lib *LocalLibrary) stopWatcher() {
	if lib.watch != nil {
		lib.watchClosedChan <- true
		lib.watch.Close()
		lib.watch = nil
		close(lib.watchClosedChan)
	}
}

// watchEventRoutine selects over the watcher events and dispatches them.
func (lib *LocalLibrary) watchEventRoutine() {
	// To make sure we will not write in the database at the same time as
	// the scanning goroutines we will wait for them to end.
	lib.WaitScan()
	defer func() {
		log.Println("Directory watcher event receiver stopped.")
	}()

	if lib.watch == nil {
		return
	}

	for {
		select {
		case ev := <-lib.watch.Event:
			if ev == nil {
				return
			}
			lib.handleWatchEvent(ev)
		case err := <-lib.watch.Error:
			if err == nil {
				return
			}
			log.Println("Directory watcher error:", err)
		case <-lib.watchClosedChan:
			return
		case <-lib.ctx.Done():
			return
		}
	}
}

// handleWatchEvent deals with the watcher events.
//   - new directories should be watched and themselves scanned
//   - new files should be added to the library
//   - deleted files should be removed from the library
//   - deleted directories should be unwatched
//   - modified files should be updated in the database
func (lib *LocalLibrary) handleWatchEvent(event *fsnotify.FileEvent) {
	if event.IsAttrib() {
		// The event was just an attribute change.
		return
	}

	st, stErr := os.Stat(event.Name)

	if stErr != nil && !event.IsRename() && !event.IsDelete() {
		log.Printf("Watch event stat received error: %s\n", stErr.Error())
		return
	}

	if event.IsDelete() || event.IsRename() {
		if lib.isSupportedFormat(event.Name) {
			// This is a file.
			lib.removeFile(event.Name)
			return
		}

		// It was a directory... probably.
		lib.watch.RemoveWatch(event.Name)
		lib.removeDirectory(event.Name)
		return
	}

	if event.IsCreate() && st.IsDir() {
		lib.watch.Watch(event.Name)
		go lib.rescanPath(event.Name)
		return
	}

	if (event.IsCreate() || event.IsModify()) && !st.IsDir() {
		if lib.isSupportedFormat(event.Name) {
			item := scanItem{
				path:  event.Name,
				size:  st.Size(),
				mtime: st.ModTime(),
			}
			if _, err := lib.addMedia(item); err != nil {
				log.Printf("Error adding %s to the library: %s",
					event.Name, err)
			}
		}
		return
	}
}
