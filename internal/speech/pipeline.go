// Package speech orchestrates one spoken reply: synthesize, persist, analyze,
// play, then signal completion. Every stage is interruptible.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"luna/backend/internal/analysis"
	"luna/backend/internal/audio"
	"luna/backend/internal/playback"
	"luna/backend/internal/protocol"
	"luna/backend/internal/synth"
)

// Sender delivers outbound events to the client. The WS session's serialized
// writer satisfies this.
type Sender interface {
	Send(ctx context.Context, event any) error
}

type Pipeline struct {
	synth    synth.Synthesizer
	playback *playback.Controller

	artifactDir   string
	chunkDuration float64
	startDelay    float64
}

func NewPipeline(s synth.Synthesizer, pc *playback.Controller, artifactDir string, chunkDuration, startDelay float64) *Pipeline {
	if chunkDuration <= 0 {
		chunkDuration = analysis.DefaultChunkDuration
	}
	return &Pipeline{
		synth:         s,
		playback:      pc,
		artifactDir:   artifactDir,
		chunkDuration: chunkDuration,
		startDelay:    startDelay,
	}
}

// Speak runs the full pipeline for one utterance. Whether it succeeds, fails
// during synthesis, or is cancelled mid-playback, the client always receives
// a terminal tts_complete event and the waveform artifact is removed.
//
// The returned error reports synthesis/persistence failures to the supervisor
// for logging; playback cancellation is not a failure.
func (p *Pipeline) Speak(ctx context.Context, req protocol.SpeakEvent, send Sender) error {
	startTime := float64(time.Now().UnixNano()) / 1e9
	synthStart := time.Now()

	res, err := p.synth.Synthesize(ctx, req.Text, req.Voice, req.Speed)
	if err != nil {
		metricSpeakOutcomes.WithLabelValues("synthesis_error").Inc()
		p.sendErrorAndComplete(ctx, send, "TTS failed: "+err.Error())
		return fmt.Errorf("speak: %w", err)
	}
	metricSynthLatency.Observe(time.Since(synthStart).Seconds())

	art, err := audio.WriteArtifact(p.artifactDir, res.Samples, res.SampleRate)
	if err != nil {
		metricSpeakOutcomes.WithLabelValues("artifact_error").Inc()
		p.sendErrorAndComplete(ctx, send, "TTS failed: "+err.Error())
		return fmt.Errorf("speak: %w", err)
	}
	defer func() {
		if err := art.Remove(); err != nil {
			log.Printf("[speech] remove artifact %s: %v", art.Path, err)
		}
	}()

	duration := analysis.Duration(res.Samples, res.SampleRate)
	frames := analysis.Analyze(res.Samples, res.SampleRate, p.chunkDuration)
	if err := send.Send(ctx, protocol.NewAudioAnalysis(duration, frames, startTime, p.startDelay)); err != nil {
		log.Printf("[speech] send audio_analysis: %v", err)
	}

	err = p.playback.Play(ctx, art.Path)
	switch {
	case err == nil:
		metricSpeakOutcomes.WithLabelValues("ok").Inc()
	case errors.Is(err, context.Canceled):
		// Interrupted by stop or a newer utterance; still a terminal state.
		metricSpeakOutcomes.WithLabelValues("cancelled").Inc()
	default:
		// Render backend trouble is logged and treated as if the playback
		// stopped; the client still unblocks.
		metricSpeakOutcomes.WithLabelValues("playback_error").Inc()
		log.Printf("[speech] playback: %v", err)
	}

	if err := send.Send(ctx, protocol.NewTTSComplete()); err != nil {
		log.Printf("[speech] send tts_complete: %v", err)
	}
	return nil
}

// sendErrorAndComplete reports a failure and then forces the terminal event so
// the client UI never hangs waiting on a reply that will not come.
func (p *Pipeline) sendErrorAndComplete(ctx context.Context, send Sender, msg string) {
	if err := send.Send(ctx, protocol.NewError(msg)); err != nil {
		log.Printf("[speech] send error event: %v", err)
	}
	if err := send.Send(ctx, protocol.NewTTSComplete()); err != nil {
		log.Printf("[speech] send tts_complete: %v", err)
	}
}
