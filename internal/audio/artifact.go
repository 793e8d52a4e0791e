package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Artifact is a transient WAV file holding one synthesized utterance. It is
// owned by the pipeline invocation that wrote it and must be removed on every
// exit path.
type Artifact struct {
	Path string
}

// WriteArtifact persists float samples in [-1,1] as a 16-bit mono WAV under
// dir (os.TempDir when empty).
func WriteArtifact(dir string, samples []float32, sampleRate int) (*Artifact, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("write artifact: empty waveform")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("write artifact: invalid sample rate %d", sampleRate)
	}

	f, err := os.CreateTemp(dir, "luna-tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	return &Artifact{Path: f.Name()}, nil
}

// Remove deletes the artifact. Removing an already-deleted artifact is fine.
func (a *Artifact) Remove() error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
