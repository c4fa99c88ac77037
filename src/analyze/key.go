package analyze

import (
	"math"
	"strconv"
	"strings"
)

// minPitchSamples is the least number of pitched frames needed for a key
// estimate. Below that the histogram is too sparse to mean anything.
const minPitchSamples = 50

// maxPitchSamples caps how many pitched frames are folded into the
// histogram. The key of a song is established long before that many frames
// and the cap keeps the work bounded for multi-hour files.
const maxPitchSamples = 4000

// keyGapScale converts the relative score gap between the best key
// candidate and the best candidate at a different root into a confidence:
// a gap of 20% or more of the winning score gives 1.0.
const keyGapScale = 0.2

// maxKeyLabelLen bounds the key label written into tags and the database.
const maxKeyLabelLen = 32

// Krumhansl-Schmuckler key profiles. Each gives the perceptual weight of
// the twelve pitch classes relative to the tonic for major and minor keys.
var (
	majorProfile = [12]float64{
		6.35, 2.23, 3.48, 2.33, 4.38, 4.09,
		2.52, 5.19, 2.39, 3.66, 2.29, 2.88,
	}
	minorProfile = [12]float64{
		6.33, 2.68, 3.52, 5.38, 2.60, 3.53,
		2.54, 4.75, 3.98, 2.69, 3.34, 3.17,
	}
)

var pitchClassNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// KeyEstimate is the result of parsing the pitch tool output.
type KeyEstimate struct {
	// Key is the musical key label, e.g. "C#m". Nil when no key could be
	// estimated.
	Key *string

	// Confidence is in [0, 1].
	Confidence float64
}

// ParseKey estimates the musical key from the pitch tool's stdout. The tool
// emits one "<timestamp> <midi note>" line per analysis frame. The MIDI
// notes are folded into a twelve bin pitch class histogram which is then
// matched against the 24 rotations of the Krumhansl major and minor
// profiles. The best matching rotation names the key.
func ParseKey(stdout string) KeyEstimate {
	histogram, samples := pitchClassHistogram(stdout)
	if samples < minPitchSamples {
		return KeyEstimate{}
	}

	type candidate struct {
		root  int
		minor bool
		score float64
	}

	var candidates []candidate
	for root := 0; root < 12; root++ {
		candidates = append(candidates,
			candidate{root, false, profileScore(histogram, majorProfile, root)},
			candidate{root, true, profileScore(histogram, minorProfile, root)},
		)
	}

	// The major candidate of a root precedes its minor candidate which
	// makes the tie-break deterministic: major wins an exact tie.
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if best.score <= 0 {
		return KeyEstimate{}
	}

	// The major and minor profiles of the same root score almost the same
	// on many histograms, so the runner-up for confidence purposes is the
	// best candidate at a different root. Otherwise even a dead-obvious key
	// would look ambiguous.
	var secondBest float64
	for _, c := range candidates {
		if c.root == best.root {
			continue
		}
		if c.score > secondBest {
			secondBest = c.score
		}
	}

	confidence := clamp01(((best.score - secondBest) / best.score) / keyGapScale)

	label := pitchClassNames[best.root]
	if best.minor {
		label += "m"
	}
	if len(label) > maxKeyLabelLen {
		label = label[:maxKeyLabelLen]
	}

	return KeyEstimate{Key: &label, Confidence: confidence}
}

// pitchClassHistogram folds the MIDI notes from the tool output into twelve
// pitch class bins. The second number of every line is taken as the note.
// Zero and negative values mean "no pitch detected in this frame" and are
// skipped, as are the inf and NaN values some decoders emit on broken
// frames since they have no pitch class to bin into.
func pitchClassHistogram(stdout string) ([12]float64, int) {
	var histogram [12]float64
	samples := 0

	for _, line := range strings.Split(stdout, "\n") {
		if samples >= maxPitchSamples {
			break
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		note, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || note <= 0 ||
			math.IsInf(note, 0) || math.IsNaN(note) {
			continue
		}

		class := int(math.Round(note)) % 12
		if class < 0 {
			class += 12
		}

		histogram[class]++
		samples++
	}

	return histogram, samples
}

// profileScore is the dot product of the histogram with the profile rotated
// so that `root` lines up with the profile's tonic.
func profileScore(histogram [12]float64, profile [12]float64, root int) float64 {
	var score float64
	for i := 0; i < 12; i++ {
		score += histogram[(root+i)%12] * profile[i]
	}

	return score
}
