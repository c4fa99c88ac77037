package analyze

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Tempo estimates outside of this range are musically implausible and are
// rejected no matter how they were obtained.
const (
	MinBPM = 30
	MaxBPM = 300
)

// Confidence constants of the tempo extraction strategies. The exact values
// are empirical, their ordering is what matters: a direct report from the
// tool beats an interval-derived estimate at high variance which beats a
// bare number found in the output.
const (
	directBPMConfidence   = 0.7
	fallbackBPMConfidence = 0.4
)

// Plausible beat interval bounds in seconds, i.e. 12 to 600 BPM territory.
// Intervals outside are treated as missed or spurious beat detections.
const (
	minBeatInterval = 0.1
	maxBeatInterval = 5.0
)

// intervalSpreadScale converts the coefficient of variation of the beat
// intervals into a confidence: zero spread gives 1.0, a spread of 25% or
// more gives 0.
const intervalSpreadScale = 0.25

// TempoEstimate is the result of parsing the tempo tool output.
type TempoEstimate struct {
	// BPM is nil when no plausible tempo was found.
	BPM *int

	// Confidence is in [0, 1].
	Confidence float64
}

var (
	directBPMRe  = regexp.MustCompile(`(?i)(?:(\d+(?:\.\d+)?)\s*bpm|bpm\s*[:=]?\s*(\d+(?:\.\d+)?))`)
	numberRe     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	bareNumberRe = regexp.MustCompile(`\b(\d{2,3})\b`)
)

// ParseTempo extracts a BPM estimate from the tempo tool's stdout. The
// output format differs between aubio builds so the parser degrades through
// several strategies instead of depending on a single format:
//
//  1. a direct "<number> bpm" (or "bpm <number>") report;
//  2. a listing of beat timestamps from which the tempo is derived as
//     60 over the median beat interval;
//  3. any bare 2-3 digit number in the text, accepted with low confidence.
func ParseTempo(stdout string) TempoEstimate {
	if est, ok := parseDirectBPM(stdout); ok {
		return est
	}

	if est, ok := parseBeatIntervals(stdout); ok {
		return est
	}

	if est, ok := parseBareNumber(stdout); ok {
		return est
	}

	return TempoEstimate{}
}

func parseDirectBPM(stdout string) (TempoEstimate, bool) {
	m := directBPMRe.FindStringSubmatch(stdout)
	if m == nil {
		return TempoEstimate{}, false
	}

	numStr := m[1]
	if numStr == "" {
		numStr = m[2]
	}

	value, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return TempoEstimate{}, false
	}

	bpm := int(math.Round(value))
	if bpm < MinBPM || bpm > MaxBPM {
		return TempoEstimate{}, false
	}

	return TempoEstimate{BPM: &bpm, Confidence: directBPMConfidence}, true
}

func parseBeatIntervals(stdout string) (TempoEstimate, bool) {
	var values []float64
	for _, m := range numberRe.FindAllString(stdout, -1) {
		value, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		values = append(values, value)
	}

	var intervals []float64
	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		if diff >= minBeatInterval && diff <= maxBeatInterval {
			intervals = append(intervals, diff)
		}
	}

	if len(intervals) < 3 {
		return TempoEstimate{}, false
	}

	// The median is robust against the occasional missed or spurious beat.
	sorted := append([]float64(nil), intervals...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	if median <= 0 {
		return TempoEstimate{}, false
	}

	bpm := int(math.Round(60 / median))
	if bpm < MinBPM {
		bpm = MinBPM
	}
	if bpm > MaxBPM {
		bpm = MaxBPM
	}

	// A metronomic beat pattern means the intervals barely vary, which is
	// exactly when the estimate deserves trust.
	var sum float64
	for _, iv := range intervals {
		sum += iv
	}
	mean := sum / float64(len(intervals))

	var sqDiffSum float64
	for _, iv := range intervals {
		sqDiffSum += (iv - mean) * (iv - mean)
	}
	stddev := math.Sqrt(sqDiffSum / float64(len(intervals)))

	confidence := clamp01(1 - (stddev/mean)/intervalSpreadScale)

	return TempoEstimate{BPM: &bpm, Confidence: confidence}, true
}

func parseBareNumber(stdout string) (TempoEstimate, bool) {
	for _, m := range bareNumberRe.FindAllString(stdout, -1) {
		value, err := strconv.Atoi(strings.TrimSpace(m))
		if err != nil {
			continue
		}
		if value < MinBPM || value > MaxBPM {
			continue
		}

		return TempoEstimate{BPM: &value, Confidence: fallbackBPMConfidence}, true
	}

	return TempoEstimate{}, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
