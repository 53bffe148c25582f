package emulator

import (
	"math"
	"math/rand"
)

// A-scan rectification modes.
const (
	RectifyNone = iota
	RectifyPositive
	RectifyNegative
	RectifyFull
)

// Echo shape of the synthesized signal.
const (
	echoWidth = 75.0
	echoSlope = 2.9
	echoFreq  = 4.0
	noiseLvl  = 0.02
)

// formWave is a windowed cosine burst of the given width centred on x=0. It
// is zero outside |x| <= delta/2.
func formWave(x, delta, slope, freq float64) float64 {
	half := delta / 2
	if x > half || x < -half {
		return 0
	}
	v := math.Pow(1-math.Abs(x/half), slope)
	v *= -math.Cos(2 * math.Pi * freq * (x / delta))
	return -v
}

// fillDataBuffer synthesizes len(buf) samples of an interface echo followed
// by two structural echoes at the given sample offsets. gainDb is applied
// with a -40 dB bias, the result is quantized to bits.
func fillDataBuffer(buf []byte, bits int, gainDb float64, delays [3]int, rng *rand.Rand) {
	amplitude := float64(int(1)<<bits - 1)
	gain := math.Pow(10, gainDb/20) / 100
	for i := range buf {
		x := float64(i)
		v := formWave(x-float64(delays[0]), echoWidth, echoSlope, echoFreq)
		v -= formWave(x-float64(delays[1]), echoWidth, echoSlope-0.3, echoFreq)
		v -= formWave(x-float64(delays[2]), echoWidth, echoSlope-0.6, echoFreq)
		v += noiseLvl * rng.Float64()
		v *= gain
		v = math.Max(-1, math.Min(1, v))
		buf[i] = byte(math.Round((v + 1) / 2 * amplitude))
	}
}

// echoDelays returns the sample offsets of the three echoes for a window
// starting at delay.
func echoDelays(sweep [3]float64, delay, ifPos int64) [3]int {
	base := float64(ifPos - delay)
	return [3]int{
		int(sweep[0] + base + 100),
		int(sweep[1] + base + 250),
		int(sweep[2] + base + 350),
	}
}

// rectify folds 8 bit samples centred on 127 into 7 bit magnitudes.
func rectify(buf []byte, mode int) {
	if mode == RectifyNone {
		return
	}
	for i, s := range buf {
		a := int(s) - 127
		switch mode {
		case RectifyPositive:
			a = max(a, 0)
		case RectifyNegative:
			a = max(-a, 0)
		default:
			a = abs(a)
		}
		buf[i] = byte(min(a, 127))
	}
}

func resize(buf []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]byte, n)
}
