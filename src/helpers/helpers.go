// Package helpers contains few helpers functions which are used throughout
// the project.
package helpers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/spf13/afero"
)

// cadenzaDir is the name of the directory in the user's home which stores
// all of the program state. The configuration, the database and the analysis
// cache all live in it.
const cadenzaDir = ".cadenza"

// ProjectUserPath returns the directory in which user files should be stored.
// Creates it if it does not exist already.
func ProjectUserPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding user home directory: %w", err)
	}

	path := filepath.Join(homeDir, cadenzaDir)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("creating user path: %w", err)
	}

	return path, nil
}

// AbsolutePath returns absolute path. If path is already absolute leave it be.
// If not join it with relativeRoot.
func AbsolutePath(path, relativeRoot string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(relativeRoot, path)
}

// SetLogsFile sets the logfile of the server.
func SetLogsFile(appfs afero.Fs, logFilePath string) error {
	if err := appfs.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return fmt.Errorf("creating log file directory: %w", err)
	}

	logFile, err := appfs.Create(logFilePath)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}

	log.SetOutput(logFile)
	return nil
}

// SetUpPidFile writes the current process ID in a file at pidFilePath.
func SetUpPidFile(appfs afero.Fs, pidFilePath string) error {
	fh, err := appfs.Create(pidFilePath)
	if err != nil {
		return fmt.Errorf("creating pid file: %w", err)
	}

	if _, err := fmt.Fprintf(fh, "%d", os.Getpid()); err != nil {
		_ = fh.Close()
		_ = appfs.Remove(pidFilePath)
		return fmt.Errorf("writing pid file: %w", err)
	}

	return fh.Close()
}

// RemovePidFile just removes the pid file. Used on shutdown.
func RemovePidFile(appfs afero.Fs, pidFilePath string) {
	if err := appfs.Remove(pidFilePath); err != nil {
		log.Printf("Error removing pid file: %s", err)
	}
}

var trackNumberPatterns = []*regexp.Regexp{
	// Track number in the beginning of the file name such as
	// "05 Iron Head.mp3" or "14. War Machine.mp3".
	regexp.MustCompile(`^#?(\d{1,2})[\s\.\-_\)]`),

	// Surrounded by brackets anywhere such as "METALLICA - (04) One.mp3".
	regexp.MustCompile(`[\(\[](\d{1,2})[\)\]]`),

	// Surrounded by dashes or underscores without any spaces such as
	// "Nightwish-07-Ocean_Soul.mp3".
	regexp.MustCompile(`[\-_](\d{1,2})[\-_]`),
}

// GuessTrackNumber tries to find a track number in the name of a media file.
// Returns 0 when no high confidence guess could be made. Wrong track numbers
// are worse than missing ones so the function is cautious on purpose.
func GuessTrackNumber(path string) int64 {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return 0
	}

	for _, pattern := range trackNumberPatterns {
		m := pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}

		number, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || number == 0 {
			continue
		}

		return number
	}

	return 0
}
