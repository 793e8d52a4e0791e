package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Chat struct {
		Host         string
		Model        string
		SystemPrompt string
		TimeoutSecs  int
	}
	Synth struct {
		URL          string
		DefaultVoice string
		SampleRate   int
		TimeoutSecs  int
	}
	Transcribe struct {
		URL         string
		MaxUploadMB int
	}
	Playback struct {
		StopGraceMs int
	}
	Analysis struct {
		ChunkDurationSecs   float64
		EstimatedStartDelay float64
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 40000)

	v.SetDefault("chat.host", "http://localhost:11434")
	v.SetDefault("chat.model", "llama3.2")
	v.SetDefault("chat.system_prompt", "You are a helpful, concise voice assistant. Your name is Luna. Keep responses brief and conversational. Don't respond in bullet lists. Don't speak in third person. Don't use emojis.")
	v.SetDefault("chat.timeout_secs", 60)

	v.SetDefault("synth.url", "http://localhost:40100/synthesize")
	v.SetDefault("synth.default_voice", "af_heart")
	v.SetDefault("synth.sample_rate", 24000)
	v.SetDefault("synth.timeout_secs", 60)

	v.SetDefault("transcribe.url", "http://localhost:40200/transcribe")
	v.SetDefault("transcribe.max_upload_mb", 50)

	v.SetDefault("playback.stop_grace_ms", 200)

	v.SetDefault("analysis.chunk_duration_secs", 0.0427)
	v.SetDefault("analysis.estimated_start_delay", 0.3)

	// Map envs
	v.BindEnv("server.port", "PORT")

	v.BindEnv("chat.host", "OLLAMA_HOST")
	v.BindEnv("chat.model", "OLLAMA_MODEL")
	v.BindEnv("chat.system_prompt", "SYSTEM_PROMPT")
	v.BindEnv("chat.timeout_secs", "OLLAMA_TIMEOUT_SECS")

	v.BindEnv("synth.url", "SYNTH_URL")
	v.BindEnv("synth.default_voice", "SYNTH_DEFAULT_VOICE")
	v.BindEnv("synth.sample_rate", "SYNTH_SAMPLE_RATE")
	v.BindEnv("synth.timeout_secs", "SYNTH_TIMEOUT_SECS")

	v.BindEnv("transcribe.url", "TRANSCRIBE_URL")
	v.BindEnv("transcribe.max_upload_mb", "TRANSCRIBE_MAX_UPLOAD_MB")

	v.BindEnv("playback.stop_grace_ms", "PLAYBACK_STOP_GRACE_MS")

	v.BindEnv("analysis.chunk_duration_secs", "ANALYSIS_CHUNK_DURATION_SECS")
	v.BindEnv("analysis.estimated_start_delay", "ESTIMATED_START_DELAY")

	var c Config
	c.Server.Port = v.GetString("server.port")

	c.Chat.Host = v.GetString("chat.host")
	c.Chat.Model = v.GetString("chat.model")
	c.Chat.SystemPrompt = v.GetString("chat.system_prompt")
	c.Chat.TimeoutSecs = v.GetInt("chat.timeout_secs")

	c.Synth.URL = v.GetString("synth.url")
	c.Synth.DefaultVoice = v.GetString("synth.default_voice")
	c.Synth.SampleRate = v.GetInt("synth.sample_rate")
	c.Synth.TimeoutSecs = v.GetInt("synth.timeout_secs")

	c.Transcribe.URL = v.GetString("transcribe.url")
	c.Transcribe.MaxUploadMB = v.GetInt("transcribe.max_upload_mb")

	c.Playback.StopGraceMs = v.GetInt("playback.stop_grace_ms")

	c.Analysis.ChunkDurationSecs = v.GetFloat64("analysis.chunk_duration_secs")
	c.Analysis.EstimatedStartDelay = v.GetFloat64("analysis.estimated_start_delay")

	log.Printf("config loaded: port=%s ollama=%s model=%s synth=%s",
		c.Server.Port, c.Chat.Host, c.Chat.Model, c.Synth.URL)
	return c
}
