// Package fingerprint computes stable cache keys for files on disk. The
// fingerprint changes whenever the file's size or modification time changes
// which is what the analysis pipeline uses for detecting that a file needs
// to be analyzed again.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// sampleSize is the number of bytes read from the head and from the tail of
// a file by the strong fingerprint variant.
const sampleSize = 64 * 1024

// StatHint carries already known file metadata so that fingerprinting does
// not have to do a stat syscall of its own. Library scans produce thousands
// of these while walking so the saving matters.
type StatHint struct {
	Size    int64
	MTimeMs int64
}

// Fingerprinter computes file fingerprints on top of a filesystem.
type Fingerprinter struct {
	fs afero.Fs
}

// New returns a Fingerprinter which reads file metadata and contents
// from appfs.
func New(appfs afero.Fs) Fingerprinter {
	return Fingerprinter{fs: appfs}
}

// Fast returns the fast fingerprint variant for the file at path. It is a
// pure function of the absolute path, the file size and the modification
// time. No file contents are read. When hint is non-nil no filesystem
// access happens at all.
func (f Fingerprinter) Fast(path string, hint *StatHint) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	hint, err = f.statUnlessHinted(abs, hint)
	if err != nil {
		return "", err
	}

	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s\n%d\n%d", abs, hint.Size, hint.MTimeMs)

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Strong returns the strong fingerprint variant. In addition to everything
// the fast variant hashes it also reads up to 64KiB from the beginning and
// up to 64KiB from the end of the file and folds them into the digest. It
// guards against external edits which preserve both size and mtime.
func (f Fingerprinter) Strong(path string, hint *StatHint) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	hint, err = f.statUnlessHinted(abs, hint)
	if err != nil {
		return "", err
	}

	fh, err := f.fs.Open(abs)
	if err != nil {
		return "", fmt.Errorf("opening file for sampling: %w", err)
	}
	defer fh.Close()

	hasher := sha256.New()

	head := make([]byte, sampleSize)
	n, err := io.ReadFull(fh, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("reading file head: %w", err)
	}
	hasher.Write(head[:n])

	if hint.Size > sampleSize {
		tailStart := hint.Size - sampleSize
		if _, err := fh.Seek(tailStart, io.SeekStart); err != nil {
			return "", fmt.Errorf("seeking to file tail: %w", err)
		}

		tail := make([]byte, sampleSize)
		n, err := io.ReadFull(fh, tail)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return "", fmt.Errorf("reading file tail: %w", err)
		}
		hasher.Write(tail[:n])
	}

	fmt.Fprintf(hasher, "%s\n%d\n%d", abs, hint.Size, hint.MTimeMs)

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (f Fingerprinter) statUnlessHinted(abs string, hint *StatHint) (*StatHint, error) {
	if hint != nil {
		return hint, nil
	}

	st, err := f.fs.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat failed: %w", err)
	}

	return &StatHint{
		Size:    st.Size(),
		MTimeMs: st.ModTime().UnixMilli(),
	}, nil
}
