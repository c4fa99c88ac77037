package library

import (
	"database/sql"
	"log"
)

// DatabaseExecutable is the type used for passing a "work unit" to the
// database worker. Every function which wants to do something with the
// database creates one and sends it in for execution. This way the database
// connection is only ever touched from a single goroutine.
type DatabaseExecutable func(db *sql.DB) error

// databaseWorker loops over the executables channel and runs everything
// received on the library's database connection. It is the only goroutine
// which is allowed to use lib.db.
func (lib *LocalLibrary) databaseWorker() error {
	for {
		select {
		case executable, ok := <-lib.dbExecutes:
			if !ok {
				return nil
			}
			if err := executable(lib.db); err != nil {
				log.Printf("Error from db executable: %s", err)
			}
		case <-lib.ctx.Done():
			return nil
		}
	}
}

// The only possible error from executeDBJob is one from the closed context.
func (lib *LocalLibrary) executeDBJob(executable DatabaseExecutable) error {
	select {
	case lib.dbExecutes <- executable:
		return nil
	case <-lib.ctx.Done():
		return lib.ctx.Err()
	}
}

// executeDBJobAndWait executes the `executable`, waits for it to finish and
// then returns its error.
func (lib *LocalLibrary) executeDBJobAndWait(executable DatabaseExecutable) error {
	var executableErr error
	done := make(chan struct{})
	defer close(done)

	work := func(db *sql.DB) error {
		defer func() {
			done <- struct{}{}
		}()
		executableErr = executable(db)
		return nil
	}

	if err := lib.executeDBJob(work); err != nil {
		return err
	}

	<-done
	return executableErr
}

// lastInsertID returns the ID of the last insert in the database. Must be
// called from within a database executable.
func lastInsertID(db *sql.DB) (int64, error) {
	var id int64

	if err := db.QueryRow("SELECT last_insert_rowid();").Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}
