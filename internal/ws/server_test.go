package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	nws "nhooyr.io/websocket"

	"luna/backend/internal/playback"
	"luna/backend/internal/protocol"
	"luna/backend/internal/sessions"
	"luna/backend/internal/speech"
)

type fakeChatter struct {
	reply string
	err   error
}

func (f *fakeChatter) Completion(ctx context.Context, sessionID, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply + ":" + text, nil
}

// fakeSpeaker mimics the pipeline contract: emit analysis, then the terminal
// tts_complete.
type fakeSpeaker struct{}

func (f *fakeSpeaker) Speak(ctx context.Context, req protocol.SpeakEvent, send speech.Sender) error {
	if err := send.Send(ctx, protocol.NewAudioAnalysis(1.0, nil, 0, 0)); err != nil {
		return err
	}
	return send.Send(ctx, protocol.NewTTSComplete())
}

type idleRenderer struct{}

func (idleRenderer) Play(ctx context.Context, path string) error { return nil }
func (idleRenderer) Stop() error                                 { return nil }

func newTestServer(t *testing.T, chat Chatter) (*sessions.Store, *httptest.Server) {
	t.Helper()
	store := sessions.NewStore()
	srv := NewServer(store, chat, &fakeSpeaker{}, playback.New(idleRenderer{}))
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return store, ts
}

func dial(t *testing.T, ts *httptest.Server) *nws.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	c, _, err := nws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close(nws.StatusNormalClosure, "test done") })
	return c
}

func sendJSON(t *testing.T, c *nws.Conn, raw string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Write(ctx, nws.MessageText, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEvent(t *testing.T, c *nws.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return out
}

func TestPingPongEchoesTimestamp(t *testing.T) {
	_, ts := newTestServer(t, &fakeChatter{reply: "ok"})
	c := dial(t, ts)

	sendJSON(t, c, `{"type":"ping","timestamp":1234.5}`)
	ev := readEvent(t, c)
	if ev["type"] != "pong" {
		t.Fatalf("expected pong, got %v", ev)
	}
	if ev["timestamp"] != 1234.5 {
		t.Fatalf("expected timestamp echo, got %v", ev["timestamp"])
	}

	sendJSON(t, c, `{"type":"ping"}`)
	ev = readEvent(t, c)
	if ev["type"] != "pong" {
		t.Fatalf("expected pong, got %v", ev)
	}
	if _, present := ev["timestamp"]; present {
		t.Fatalf("pong without ping timestamp should omit the field, got %v", ev)
	}
}

func TestModeChangeStoredAndAcked(t *testing.T) {
	store, ts := newTestServer(t, &fakeChatter{})
	c := dial(t, ts)

	sendJSON(t, c, `{"type":"mode_change","mode":"recording"}`)
	ev := readEvent(t, c)
	if ev["type"] != "mode_change" || ev["message"] != "Mode set to recording" {
		t.Fatalf("unexpected ack %v", ev)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if store.Count() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMalformedJSONKeepsConnectionOpen(t *testing.T) {
	_, ts := newTestServer(t, &fakeChatter{})
	c := dial(t, ts)

	sendJSON(t, c, `{not json`)
	ev := readEvent(t, c)
	if ev["type"] != "error" || ev["message"] != "Invalid JSON format" {
		t.Fatalf("unexpected error event %v", ev)
	}

	// The channel must survive a bad frame.
	sendJSON(t, c, `{"type":"ping"}`)
	if ev := readEvent(t, c); ev["type"] != "pong" {
		t.Fatalf("connection unusable after malformed frame: %v", ev)
	}
}

func TestValidationErrorReportsReason(t *testing.T) {
	_, ts := newTestServer(t, &fakeChatter{})
	c := dial(t, ts)

	sendJSON(t, c, `{"type":"chat","text":""}`)
	ev := readEvent(t, c)
	if ev["type"] != "error" {
		t.Fatalf("expected error event, got %v", ev)
	}
	msg, _ := ev["message"].(string)
	if !strings.Contains(msg, "empty") {
		t.Fatalf("expected reason about empty text, got %q", msg)
	}
}

func TestChatRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, &fakeChatter{reply: "echo"})
	c := dial(t, ts)

	sendJSON(t, c, `{"type":"chat","text":"hello"}`)
	ev := readEvent(t, c)
	if ev["type"] != "chat_response" || ev["response"] != "echo:hello" {
		t.Fatalf("unexpected chat response %v", ev)
	}
}

func TestChatFailureSendsError(t *testing.T) {
	_, ts := newTestServer(t, &fakeChatter{err: fmt.Errorf("model offline")})
	c := dial(t, ts)

	sendJSON(t, c, `{"type":"chat","text":"hello"}`)
	ev := readEvent(t, c)
	if ev["type"] != "error" {
		t.Fatalf("expected error event, got %v", ev)
	}
}

func TestSpeakEmitsAnalysisThenComplete(t *testing.T) {
	_, ts := newTestServer(t, &fakeChatter{})
	c := dial(t, ts)

	sendJSON(t, c, `{"type":"speak","text":"hi"}`)
	first := readEvent(t, c)
	if first["type"] != "audio_analysis" {
		t.Fatalf("expected audio_analysis first, got %v", first)
	}
	second := readEvent(t, c)
	if second["type"] != "tts_complete" {
		t.Fatalf("expected tts_complete, got %v", second)
	}
}

func TestStopAcked(t *testing.T) {
	_, ts := newTestServer(t, &fakeChatter{})
	c := dial(t, ts)

	sendJSON(t, c, `{"type":"stop"}`)
	ev := readEvent(t, c)
	if ev["type"] != "stop" || ev["message"] != "Playback stopped" {
		t.Fatalf("unexpected stop ack %v", ev)
	}
}

func TestDisconnectRemovesSession(t *testing.T) {
	store, ts := newTestServer(t, &fakeChatter{})
	c := dial(t, ts)

	// Prove the session exists before closing.
	sendJSON(t, c, `{"type":"ping"}`)
	readEvent(t, c)
	if store.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Count())
	}

	c.Close(nws.StatusNormalClosure, "bye")
	deadline := time.Now().Add(2 * time.Second)
	for store.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not cleaned up, %d remain", store.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
