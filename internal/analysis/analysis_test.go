package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, rate, n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestAnalyzeChunkCount(t *testing.T) {
	rate := 24000
	// Exactly one second: floor(24000/1024) full chunks plus a 448-sample
	// remainder that survives the 64-sample floor and gets padded.
	samples := sine(440, rate, rate, 0.5)

	frames := Analyze(samples, rate, DefaultChunkDuration)
	chunkSize := int(float64(rate) * DefaultChunkDuration)
	want := len(samples) / chunkSize
	if len(samples)%chunkSize >= 64 {
		want++
	}
	assert.Equal(t, want, len(frames))
}

func TestAnalyzeDropsTinyTrailingChunk(t *testing.T) {
	rate := 24000
	chunkSize := int(float64(rate) * DefaultChunkDuration)
	// One full chunk plus 63 samples: the tail is below the floor.
	samples := sine(440, rate, chunkSize+63, 0.5)

	frames := Analyze(samples, rate, DefaultChunkDuration)
	assert.Equal(t, 1, len(frames))
}

func TestAnalyzeDeterministic(t *testing.T) {
	rate := 24000
	samples := sine(440, rate, rate/2, 0.5)
	a := Analyze(samples, rate, DefaultChunkDuration)
	b := Analyze(samples, rate, DefaultChunkDuration)
	require.Equal(t, a, b)
}

func TestAnalyzeBandValuesInRange(t *testing.T) {
	rate := 24000
	samples := sine(1000, rate, rate/2, 0.8)
	frames := Analyze(samples, rate, DefaultChunkDuration)
	require.NotEmpty(t, frames)
	for _, f := range frames {
		assert.GreaterOrEqual(t, f.Bass, 0.0)
		assert.LessOrEqual(t, f.Bass, 1.0)
		assert.GreaterOrEqual(t, f.LowMid, 0.0)
		assert.LessOrEqual(t, f.LowMid, 1.0)
		assert.GreaterOrEqual(t, f.HighMid, 0.0)
		assert.LessOrEqual(t, f.HighMid, 1.0)
		assert.GreaterOrEqual(t, f.High, 0.0)
		assert.LessOrEqual(t, f.High, 1.0)
	}
}

func TestAnalyzeDominantBand(t *testing.T) {
	rate := 24000
	// A 100Hz tone should light up the bass band hardest; a 1500Hz tone the
	// high-mid band.
	bassFrames := Analyze(sine(100, rate, rate/2, 0.8), rate, DefaultChunkDuration)
	require.NotEmpty(t, bassFrames)
	assert.Equal(t, 1.0, bassFrames[0].Bass)

	midFrames := Analyze(sine(1500, rate, rate/2, 0.8), rate, DefaultChunkDuration)
	require.NotEmpty(t, midFrames)
	assert.Equal(t, 1.0, midFrames[0].HighMid)
}

func TestAnalyzeSilentBufferVolume(t *testing.T) {
	rate := 24000
	samples := make([]float32, rate/2)
	frames := Analyze(samples, rate, DefaultChunkDuration)
	require.NotEmpty(t, frames)
	for _, f := range frames {
		assert.Equal(t, 0.0, f.Volume)
	}
}

func TestAnalyzeRMSMatchesChunk(t *testing.T) {
	rate := 24000
	chunkSize := int(float64(rate) * DefaultChunkDuration)
	// Constant-amplitude chunk: RMS equals the amplitude exactly.
	samples := make([]float32, chunkSize)
	for i := range samples {
		samples[i] = 0.25
	}
	frames := Analyze(samples, rate, DefaultChunkDuration)
	require.Len(t, frames, 1)
	assert.InDelta(t, 0.25, frames[0].Volume, 1e-6)
}

func TestAnalyzeFrameTimes(t *testing.T) {
	rate := 24000
	chunkSize := int(float64(rate) * DefaultChunkDuration)
	samples := sine(440, rate, 3*chunkSize, 0.5)
	frames := Analyze(samples, rate, DefaultChunkDuration)
	require.Len(t, frames, 3)
	for i, f := range frames {
		assert.InDelta(t, float64(i*chunkSize)/float64(rate), f.Time, 1e-9)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	assert.Nil(t, Analyze(nil, 24000, DefaultChunkDuration))
	assert.Nil(t, Analyze([]float32{0.1}, 0, DefaultChunkDuration))
}

func TestDuration(t *testing.T) {
	assert.InDelta(t, 1.0, Duration(make([]float32, 24000), 24000), 1e-9)
	assert.Equal(t, 0.0, Duration(nil, 0))
}
