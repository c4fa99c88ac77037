package analyze

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spisarov/cadenza/src/assert"
)

// pitchOutput builds tool output with one "<timestamp> <midi note>" line
// per given note.
func pitchOutput(notes []int) string {
	var sb strings.Builder
	for i, note := range notes {
		fmt.Fprintf(&sb, "%.6f %d.000000\n", float64(i)*0.01, note)
	}

	return sb.String()
}

// TestParseKeyNotEnoughSamples makes sure that a sparse pitch histogram
// produces no estimate at all.
func TestParseKeyNotEnoughSamples(t *testing.T) {
	notes := make([]int, minPitchSamples-1)
	for i := range notes {
		notes[i] = 60
	}

	est := ParseKey(pitchOutput(notes))

	if est.Key != nil {
		t.Errorf("expected no key from %d samples, got %s",
			len(notes), *est.Key)
	}

	assert.Equal(t, 0.0, est.Confidence, "expected zero confidence")
}

// TestParseKeySinglePitchClass checks that a signal made of nothing but C
// notes is confidently called C.
func TestParseKeySinglePitchClass(t *testing.T) {
	notes := make([]int, 200)
	for i := range notes {
		notes[i] = 60 // middle C
	}

	est := ParseKey(pitchOutput(notes))

	if est.Key == nil {
		t.Fatalf("no key estimated from the all-C input")
	}

	assert.Equal(t, "C", *est.Key, "wrong key for the all-C input")

	if est.Confidence < 0.5 {
		t.Errorf("expected a confident estimate, got %f", est.Confidence)
	}
}

// TestParseKeyMinor feeds in a note distribution shaped like an A minor
// tonality and expects "Am" back.
func TestParseKeyMinor(t *testing.T) {
	var notes []int
	for i, weight := range minorProfile {
		note := 57 + i // 57 is MIDI A below middle C
		for j := 0; j < int(weight*10); j++ {
			notes = append(notes, note)
		}
	}

	est := ParseKey(pitchOutput(notes))

	if est.Key == nil {
		t.Fatalf("no key estimated from the A minor input")
	}

	assert.Equal(t, "Am", *est.Key, "wrong key for the A minor input")

	if est.Confidence < 0.1 {
		t.Errorf("expected a usable confidence, got %f", est.Confidence)
	}
}

// TestParseKeySkipsUnpitchedFrames makes sure that the "no pitch here"
// frames the tool emits for silence do not pollute the histogram.
func TestParseKeySkipsUnpitchedFrames(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "%.6f 60.000000\n", float64(i)*0.01)
		fmt.Fprintf(&sb, "%.6f 0.000000\n", float64(i)*0.01+0.005)
		fmt.Fprintf(&sb, "%.6f -1.000000\n", float64(i)*0.01+0.007)
	}

	_, samples := pitchClassHistogram(sb.String())
	assert.Equal(t, 100, samples, "unpitched frames were counted as samples")

	est := ParseKey(sb.String())
	if est.Key == nil {
		t.Fatalf("no key estimated")
	}

	assert.Equal(t, "C", *est.Key, "unpitched frames changed the estimate")
}

// TestParseKeySkipsNonFiniteFrames makes sure the inf and NaN values some
// decoders emit on broken frames are not binned into the histogram. ParseFloat
// happily accepts them, so they need skipping of their own.
func TestParseKeySkipsNonFiniteFrames(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "%.6f inf\n", float64(i)*0.01)
		fmt.Fprintf(&sb, "%.6f -inf\n", float64(i)*0.01+0.003)
		fmt.Fprintf(&sb, "%.6f nan\n", float64(i)*0.01+0.007)
	}

	est := ParseKey(sb.String())
	if est.Key != nil {
		t.Errorf("expected no key from non-finite input, got %s", *est.Key)
	}
	assert.Equal(t, 0.0, est.Confidence, "expected zero confidence")

	// Mixed in with too few real notes the non-finite frames must not
	// push the sample count over the estimation threshold either.
	for i := 0; i < minPitchSamples-1; i++ {
		fmt.Fprintf(&sb, "%.6f 60.000000\n", float64(i)*0.01)
	}

	_, samples := pitchClassHistogram(sb.String())
	assert.Equal(t, minPitchSamples-1, samples,
		"non-finite frames were counted as samples")

	if est := ParseKey(sb.String()); est.Key != nil {
		t.Errorf("non-finite frames pushed out a key estimate: %s", *est.Key)
	}
}

// TestParseKeyDeterminism runs the same input twice and expects identical
// results.
func TestParseKeyDeterminism(t *testing.T) {
	var notes []int
	for i := 0; i < 300; i++ {
		notes = append(notes, 60+i%12)
	}

	out := pitchOutput(notes)

	first := ParseKey(out)
	second := ParseKey(out)

	if first.Key == nil || second.Key == nil {
		t.Fatalf("no key estimated")
	}

	assert.Equal(t, *first.Key, *second.Key, "key estimate is not stable")
	assert.Equal(t, first.Confidence, second.Confidence,
		"confidence is not stable")
}

// TestParseKeyGarbage makes sure random text does not produce an estimate.
func TestParseKeyGarbage(t *testing.T) {
	est := ParseKey("this is not pitch output at all\nnope\n")

	if est.Key != nil {
		t.Errorf("expected no key from garbage, got %s", *est.Key)
	}
}
