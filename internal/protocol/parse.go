package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedJSON marks frames that are not valid JSON at all, as opposed to
// well-formed JSON that fails schema validation. Clients rely on the
// distinction for diagnostics.
var ErrMalformedJSON = errors.New("invalid JSON format")

// ValidationError reports a well-formed frame that does not match any of the
// five inbound event shapes, or violates a field bound.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

var validModes = map[string]bool{
	ModeIdle:       true,
	ModeRecording:  true,
	ModeProcessing: true,
	ModeSpeaking:   true,
	ModeText:       true,
}

// Parse decodes one inbound text frame into a validated Event. Errors are
// either ErrMalformedJSON (not JSON) or *ValidationError (bad shape/bounds).
func Parse(data []byte) (Event, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	switch head.Type {
	case TypeChat:
		var ev ChatEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, invalid("chat: %v", err)
		}
		if err := validateText(ev.Text); err != nil {
			return nil, err
		}
		return ev, nil

	case TypeSpeak:
		ev := SpeakEvent{Voice: DefaultVoice, Speed: DefaultSpeed}
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, invalid("speak: %v", err)
		}
		if err := validateText(ev.Text); err != nil {
			return nil, err
		}
		if ev.Voice == "" {
			ev.Voice = DefaultVoice
		}
		if utf8.RuneCountInString(ev.Voice) > MaxVoiceRunes {
			return nil, invalid("voice exceeds %d characters", MaxVoiceRunes)
		}
		if ev.Speed < MinSpeed || ev.Speed > MaxSpeed {
			return nil, invalid("speed %v outside [%v, %v]", ev.Speed, MinSpeed, MaxSpeed)
		}
		return ev, nil

	case TypeStop:
		return StopEvent{Type: TypeStop}, nil

	case TypeModeChange:
		var ev ModeChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, invalid("mode_change: %v", err)
		}
		if !validModes[ev.Mode] {
			return nil, invalid("unknown mode %q", ev.Mode)
		}
		return ev, nil

	case TypePing:
		var ev PingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, invalid("ping: %v", err)
		}
		return ev, nil

	case "":
		return nil, invalid("missing type field")

	default:
		return nil, invalid("unknown message type %q", head.Type)
	}
}

func validateText(text string) error {
	if text == "" {
		return invalid("text must not be empty")
	}
	if utf8.RuneCountInString(text) > MaxTextRunes {
		return invalid("text exceeds %d characters", MaxTextRunes)
	}
	return nil
}
