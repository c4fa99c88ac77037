package analyze

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spisarov/cadenza/src/assert"
)

// TestParseTempoDirectReport covers tool builds which print the tempo
// directly.
func TestParseTempoDirectReport(t *testing.T) {
	tests := []struct {
		stdout string
		bpm    int
	}{
		{"128.000000 bpm", 128},
		{"bpm: 95", 95},
		{"overall tempo 174.1 BPM\n", 174},
	}

	for _, test := range tests {
		est := ParseTempo(test.stdout)

		if est.BPM == nil {
			t.Fatalf("no BPM parsed from %q", test.stdout)
		}

		assert.Equal(t, test.bpm, *est.BPM, "wrong BPM for %q", test.stdout)
		assert.Equal(t, directBPMConfidence, est.Confidence,
			"wrong confidence for %q", test.stdout)
	}
}

// TestParseTempoBeatTimestamps derives the tempo from a listing of beat
// timestamps the way most aubio builds print them.
func TestParseTempoBeatTimestamps(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "%.6f\n", float64(i)*0.5)
	}

	est := ParseTempo(sb.String())

	if est.BPM == nil {
		t.Fatalf("no BPM parsed from the beat timestamps")
	}

	assert.Equal(t, 120, *est.BPM, "wrong BPM from 0.5s beat intervals")
	assert.Equal(t, 1.0, est.Confidence,
		"metronomic beats should give full confidence")
}

// TestParseTempoUnsteadyBeats makes sure that wildly varying beat intervals
// drag the confidence down.
func TestParseTempoUnsteadyBeats(t *testing.T) {
	est := ParseTempo("0.0\n0.4\n1.2\n1.5\n2.8\n3.0\n4.1\n")

	if est.BPM == nil {
		t.Fatalf("no BPM parsed from the unsteady beats")
	}

	if est.Confidence >= 1 {
		t.Errorf("unsteady beats should not give full confidence, got %f",
			est.Confidence)
	}
}

// TestParseTempoNotEnoughBeats checks that one or two beats are not enough
// for an interval-based estimate.
func TestParseTempoNotEnoughBeats(t *testing.T) {
	est := ParseTempo("0.5\n1.0\n")

	if est.BPM != nil {
		t.Errorf("expected no BPM from two beats, got %d", *est.BPM)
	}

	assert.Equal(t, 0.0, est.Confidence, "expected zero confidence")
}

// TestParseTempoBareNumberFallback covers output which contains a plausible
// tempo without any recognizable structure around it.
func TestParseTempoBareNumberFallback(t *testing.T) {
	est := ParseTempo("tempo detected around 128 maybe")

	if est.BPM == nil {
		t.Fatalf("no BPM parsed from the free-form text")
	}

	assert.Equal(t, 128, *est.BPM, "wrong BPM from the free-form text")
	assert.Equal(t, fallbackBPMConfidence, est.Confidence,
		"the bare number fallback should use the low confidence")
}

// TestParseTempoRejectsImplausible makes sure that values outside the
// musically plausible range are never returned.
func TestParseTempoRejectsImplausible(t *testing.T) {
	for _, stdout := range []string{"500 bpm", "20 bpm", "", "no numbers here"} {
		est := ParseTempo(stdout)

		if est.BPM != nil {
			t.Errorf("expected no BPM for %q, got %d", stdout, *est.BPM)
		}
	}
}
