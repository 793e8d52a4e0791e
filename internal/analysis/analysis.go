// Package analysis derives per-chunk visualization features from a
// synthesized waveform: RMS volume plus spectral energy bucketed into four
// frequency bands.
package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"luna/backend/internal/protocol"
)

const (
	// DefaultChunkDuration matches one visualizer frame (~42.7ms).
	DefaultChunkDuration = 0.0427

	// Chunks shorter than this carry too few samples to analyze; they are
	// dropped rather than padded.
	minChunkSamples = 64

	// Floor for per-chunk band normalization, so silent chunks divide by
	// something sane instead of zero.
	normFloor = 1e-6
)

// Band edges in Hz.
const (
	bassMax    = 200.0
	lowMidMax  = 800.0
	highMidMax = 2000.0
)

// Analyze splits the waveform into fixed-duration chunks and computes one
// AnalysisFrame per chunk. The final short chunk is zero-padded to the chunk
// size unless it is under the minimum sample floor, in which case it is
// discarded. Band energies are normalized per chunk by the maximum band
// energy, so every band value lands in [0,1].
func Analyze(samples []float32, sampleRate int, chunkDuration float64) []protocol.AnalysisFrame {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}

	chunkSize := int(float64(sampleRate) * chunkDuration)
	if chunkSize < 1 {
		chunkSize = 1
	}

	fft := fourier.NewFFT(chunkSize)
	chunk := make([]float64, chunkSize)
	coeffs := make([]complex128, chunkSize/2+1)

	var frames []protocol.AnalysisFrame
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		n := end - start
		if n < minChunkSamples {
			continue
		}

		for i := 0; i < n; i++ {
			chunk[i] = float64(samples[start+i])
		}
		// Zero-pad a short final chunk to the full size.
		for i := n; i < chunkSize; i++ {
			chunk[i] = 0
		}

		var sumSq float64
		for _, s := range chunk {
			sumSq += s * s
		}
		rms := math.Sqrt(sumSq / float64(chunkSize))

		coeffs = fft.Coefficients(coeffs, chunk)

		var bandSum [4]float64
		var bandCount [4]int
		for i, c := range coeffs {
			freq := fft.Freq(i) * float64(sampleRate)
			b := bandIndex(freq)
			bandSum[b] += cmplx.Abs(c)
			bandCount[b]++
		}

		var energy [4]float64
		for b := range energy {
			if bandCount[b] > 0 {
				energy[b] = bandSum[b] / float64(bandCount[b])
			}
		}

		norm := normFloor
		for _, e := range energy {
			if e > norm {
				norm = e
			}
		}

		frames = append(frames, protocol.AnalysisFrame{
			Time:    float64(start) / float64(sampleRate),
			Volume:  rms,
			Bass:    energy[0] / norm,
			LowMid:  energy[1] / norm,
			HighMid: energy[2] / norm,
			High:    energy[3] / norm,
		})
	}
	return frames
}

func bandIndex(freq float64) int {
	switch {
	case freq <= bassMax:
		return 0
	case freq <= lowMidMax:
		return 1
	case freq <= highMidMax:
		return 2
	default:
		return 3
	}
}

// Duration reports the waveform length in seconds.
func Duration(samples []float32, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(samples)) / float64(sampleRate)
}
