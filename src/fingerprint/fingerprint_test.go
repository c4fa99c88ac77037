package fingerprint

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/spisarov/cadenza/src/assert"
)

// TestFastDeterminism makes sure that the same inputs always produce the
// same fingerprint and that changing any input changes it.
func TestFastDeterminism(t *testing.T) {
	f := New(afero.NewMemMapFs())

	hint := &StatHint{Size: 4525, MTimeMs: 1720000000000}

	first, err := f.Fast("/music/song.mp3", hint)
	assert.NilErr(t, err)

	second, err := f.Fast("/music/song.mp3", hint)
	assert.NilErr(t, err)

	assert.Equal(t, first, second, "fingerprint is not deterministic")

	changedSize, err := f.Fast("/music/song.mp3", &StatHint{
		Size:    hint.Size + 1,
		MTimeMs: hint.MTimeMs,
	})
	assert.NilErr(t, err)

	if changedSize == first {
		t.Errorf("changing the size did not change the fingerprint")
	}

	changedTime, err := f.Fast("/music/song.mp3", &StatHint{
		Size:    hint.Size,
		MTimeMs: hint.MTimeMs + 1,
	})
	assert.NilErr(t, err)

	if changedTime == first {
		t.Errorf("changing the mtime did not change the fingerprint")
	}

	otherPath, err := f.Fast("/music/other.mp3", hint)
	assert.NilErr(t, err)

	if otherPath == first {
		t.Errorf("different paths produced the same fingerprint")
	}
}

// TestFastWithStat checks the variant which stats the filesystem instead of
// using a hint.
func TestFastWithStat(t *testing.T) {
	testfs := afero.NewMemMapFs()

	err := afero.WriteFile(testfs, "/music/song.mp3", []byte("not really audio"), 0644)
	assert.NilErr(t, err)

	mtime := time.Date(2024, 7, 3, 12, 0, 0, 0, time.UTC)
	err = testfs.Chtimes("/music/song.mp3", mtime, mtime)
	assert.NilErr(t, err)

	f := New(testfs)

	statted, err := f.Fast("/music/song.mp3", nil)
	assert.NilErr(t, err)

	hinted, err := f.Fast("/music/song.mp3", &StatHint{
		Size:    int64(len("not really audio")),
		MTimeMs: mtime.UnixMilli(),
	})
	assert.NilErr(t, err)

	assert.Equal(t, hinted, statted, "hinted and statted fingerprints differ")

	if _, err := f.Fast("/music/no-such-file.mp3", nil); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

// TestStrongVariant makes sure the strong fingerprint reacts to content
// changes which preserve both size and mtime.
func TestStrongVariant(t *testing.T) {
	testfs := afero.NewMemMapFs()
	mtime := time.Date(2024, 7, 3, 12, 0, 0, 0, time.UTC)

	writeFile := func(contents string) {
		err := afero.WriteFile(testfs, "/music/song.mp3", []byte(contents), 0644)
		assert.NilErr(t, err)
		assert.NilErr(t, testfs.Chtimes("/music/song.mp3", mtime, mtime))
	}

	f := New(testfs)

	writeFile("first contents!!")
	first, err := f.Strong("/music/song.mp3", nil)
	assert.NilErr(t, err)

	writeFile("other contents!!")
	second, err := f.Strong("/music/song.mp3", nil)
	assert.NilErr(t, err)

	if first == second {
		t.Errorf("strong fingerprint did not react to a content change")
	}

	// While the fast variant cannot tell the difference.
	fastFirst, err := f.Fast("/music/song.mp3", nil)
	assert.NilErr(t, err)

	writeFile("first contents!!")
	fastSecond, err := f.Fast("/music/song.mp3", nil)
	assert.NilErr(t, err)

	assert.Equal(t, fastFirst, fastSecond,
		"fast fingerprint should only depend on path, size and mtime")
}
