// Package synth is the boundary to the text-to-speech engine. The engine is a
// black box that turns (text, voice, speed) into a waveform; this package
// talks to it over HTTP and decodes the WAV it returns.
package synth

import "context"

// Result is one synthesized utterance: mono float samples in [-1,1].
type Result struct {
	Samples    []float32
	SampleRate int
}

// Synthesizer produces a waveform for an utterance. Implementations must be
// safe for concurrent use and must honor ctx cancellation.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) (*Result, error)
}
