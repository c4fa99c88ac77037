package analyze

import (
	"fmt"
	"strconv"

	"go.senan.xyz/taglib"
)

// Tag keys used for storing analysis results in the files themselves. These
// are the conventional names which DJ software reads back.
const (
	tagKeyBPM = "BPM"
	tagKeyKey = "INITIALKEY"
)

// TagWriter persists analysis results into the audio files' own tags so
// that the values survive the library database and travel with the files.
type TagWriter struct{}

var _ Tagger = (*TagWriter)(nil)

// WriteTags writes the BPM and INITIALKEY tags of the file at path. Tags
// for which there is no value are left untouched. When there is nothing to
// write at all the file is not opened and (false, nil) is returned.
func (w *TagWriter) WriteTags(path string, bpm *int, key string) (bool, error) {
	tags := map[string][]string{}

	if bpm != nil {
		tags[tagKeyBPM] = []string{strconv.Itoa(*bpm)}
	}
	if key != "" {
		tags[tagKeyKey] = []string{key}
	}

	if len(tags) == 0 {
		return false, nil
	}

	if err := taglib.WriteTags(path, tags, 0); err != nil {
		return false, fmt.Errorf("writing tags of %s: %w", path, err)
	}

	return true, nil
}
