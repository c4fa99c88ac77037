package analyze

import (
	"testing"

	"github.com/spisarov/cadenza/src/assert"
)

// TestTagWriterNothingToWrite makes sure a write with no values does not
// even touch the file.
func TestTagWriterNothingToWrite(t *testing.T) {
	writer := &TagWriter{}

	wrote, err := writer.WriteTags("/no/such/file.mp3", nil, "")

	assert.NilErr(t, err)
	assert.Equal(t, false, wrote, "an empty write claimed to have written")
}

// TestTagWriterMissingFile makes sure writing to a file which is not there
// fails loudly instead of silently.
func TestTagWriterMissingFile(t *testing.T) {
	writer := &TagWriter{}
	bpm := 128

	wrote, err := writer.WriteTags("/no/such/file.mp3", &bpm, "Am")

	assert.NotNilErr(t, err)
	assert.Equal(t, false, wrote, "a failed write claimed to have written")
}
