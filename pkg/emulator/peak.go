package emulator

// Amplitudes reported when no sample qualifies.
const (
	noPeakNegative = -128
	noPeakPositive = 127
)

// peakNormal finds the extreme sample of values that passes threshold under
// polarity p:
//
//	negative: the minimum sample <= threshold
//	positive: the maximum sample >= threshold
//	full:     the sample furthest from 127 with |v-127| >= threshold
//
// When the extreme is held by consecutive samples the index of the middle
// one (start + n/2) is reported; of several such plateaus the last wins.
func peakNormal(p Polarity, threshold int, values []byte) (idx, amp int, found bool) {
	score := func(v int) (int, bool) {
		switch {
		case p < 0:
			return -v, v <= threshold
		case p > 0:
			return v, v >= threshold
		}
		d := abs(v - 127)
		return d, d >= threshold
	}
	var best, start, n int
	for i, b := range values {
		s, ok := score(int(b))
		if !ok {
			continue
		}
		switch {
		case !found || s > best:
			found, best, start, n = true, s, i, 1
		case s == best:
			if start+n == i {
				n++
			} else {
				start, n = i, 1
			}
		}
	}
	if !found {
		if p < 0 {
			return 0, noPeakNegative, false
		}
		return 0, noPeakPositive, false
	}
	idx = start + n/2
	return idx, int(values[idx]), true
}
