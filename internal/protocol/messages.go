// Package protocol defines the JSON event shapes carried over the /ws endpoint
// and validates inbound frames before they reach a handler.
package protocol

// Type discriminates inbound and outbound events.
type Type string

const (
	// Client -> server
	TypeChat       Type = "chat"
	TypeSpeak      Type = "speak"
	TypeStop       Type = "stop"
	TypeModeChange Type = "mode_change"
	TypePing       Type = "ping"

	// Server -> client
	TypeError         Type = "error"
	TypeChatResponse  Type = "chat_response"
	TypePong          Type = "pong"
	TypeAudioAnalysis Type = "audio_analysis"
	TypeTTSComplete   Type = "tts_complete"
)

// Session modes a client may request via mode_change.
const (
	ModeIdle       = "idle"
	ModeRecording  = "recording"
	ModeProcessing = "processing"
	ModeSpeaking   = "speaking"
	ModeText       = "text"
)

// Validation bounds for inbound events.
const (
	MaxTextRunes  = 5000
	MaxVoiceRunes = 50
	MinSpeed      = 0.1
	MaxSpeed      = 3.0
	DefaultVoice  = "default"
	DefaultSpeed  = 1.0
)

// Event is any validated inbound event.
type Event interface {
	EventType() Type
}

type ChatEvent struct {
	Type Type   `json:"type"`
	Text string `json:"text"`
}

type SpeakEvent struct {
	Type  Type    `json:"type"`
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

type StopEvent struct {
	Type Type `json:"type"`
}

type ModeChangeEvent struct {
	Type Type   `json:"type"`
	Mode string `json:"mode"`
}

type PingEvent struct {
	Type      Type     `json:"type"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

func (e ChatEvent) EventType() Type       { return TypeChat }
func (e SpeakEvent) EventType() Type      { return TypeSpeak }
func (e StopEvent) EventType() Type       { return TypeStop }
func (e ModeChangeEvent) EventType() Type { return TypeModeChange }
func (e PingEvent) EventType() Type       { return TypePing }

// --- Server -> client events ---

type ErrorEvent struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

type ChatResponseEvent struct {
	Type     Type   `json:"type"`
	Response string `json:"response"`
}

type PongEvent struct {
	Type      Type     `json:"type"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

type ModeChangeAck struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

type StopAck struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

// AnalysisFrame is one fixed-duration feature sample used by the client
// visualizer. Band values are normalized per frame into [0,1].
type AnalysisFrame struct {
	Time    float64 `json:"time"`
	Volume  float64 `json:"volume"`
	Bass    float64 `json:"bass"`
	LowMid  float64 `json:"low_mid"`
	HighMid float64 `json:"high_mid"`
	High    float64 `json:"high"`
}

type AudioAnalysisEvent struct {
	Type                Type            `json:"type"`
	Duration            float64         `json:"duration"`
	Analysis            []AnalysisFrame `json:"analysis"`
	StartTime           float64         `json:"start_time"`
	EstimatedStartDelay float64         `json:"estimated_start_delay"`
}

type TTSCompleteEvent struct {
	Type Type `json:"type"`
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Message: message}
}

func NewChatResponse(response string) ChatResponseEvent {
	return ChatResponseEvent{Type: TypeChatResponse, Response: response}
}

func NewPong(timestamp *float64) PongEvent {
	return PongEvent{Type: TypePong, Timestamp: timestamp}
}

func NewModeChangeAck(mode string) ModeChangeAck {
	return ModeChangeAck{Type: TypeModeChange, Message: "Mode set to " + mode}
}

func NewStopAck() StopAck {
	return StopAck{Type: TypeStop, Message: "Playback stopped"}
}

func NewAudioAnalysis(duration float64, frames []AnalysisFrame, startTime, startDelay float64) AudioAnalysisEvent {
	return AudioAnalysisEvent{
		Type:                TypeAudioAnalysis,
		Duration:            duration,
		Analysis:            frames,
		StartTime:           startTime,
		EstimatedStartDelay: startDelay,
	}
}

func NewTTSComplete() TTSCompleteEvent {
	return TTSCompleteEvent{Type: TypeTTSComplete}
}
