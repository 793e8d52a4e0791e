// Package ws owns the duplex client channel: one goroutine reads and
// dispatches typed events, replies are serialized through a locked writer, and
// long-running speech work is supervised off the read loop.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	ws "nhooyr.io/websocket"

	"luna/backend/internal/playback"
	"luna/backend/internal/protocol"
	"luna/backend/internal/sessions"
	"luna/backend/internal/speech"
)

// Chatter runs one conversational turn against the language model.
type Chatter interface {
	Completion(ctx context.Context, sessionID, text string) (string, error)
}

// Speaker runs the speak pipeline to completion for one utterance.
type Speaker interface {
	Speak(ctx context.Context, req protocol.SpeakEvent, send speech.Sender) error
}

type Server struct {
	Store    *sessions.Store
	Chat     Chatter
	Speech   Speaker
	Playback *playback.Controller
}

func NewServer(store *sessions.Store, chat Chatter, sp Speaker, pc *playback.Controller) *Server {
	return &Server{Store: store, Chat: chat, Speech: sp, Playback: pc}
}

// conn serializes writes to one client. nhooyr's Conn allows a single
// concurrent writer, and both the read loop and speak goroutines send events.
type conn struct {
	mu sync.Mutex
	c  *ws.Conn
}

func (c *conn) Send(ctx context.Context, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.Write(ctx, ws.MessageText, b)
}

type taskResult struct {
	sessionID string
	err       error
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := ws.Accept(w, r, nil)
	if err != nil {
		log.Printf("[ws] accept: %v", err)
		return
	}
	c := &conn{c: raw}

	sess := s.Store.Create()
	log.Printf("[ws] session %s connected (%d active)", sess.ID, s.Store.Count())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Speak runs are fire-and-forget from the read loop's point of view; the
	// supervisor drains their outcomes so no goroutine exits unobserved.
	var tasks sync.WaitGroup
	results := make(chan taskResult, 8)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		for res := range results {
			if res.err != nil {
				log.Printf("[ws] session %s: speak task: %v", res.sessionID, res.err)
			}
		}
	}()

	defer func() {
		if err := s.Playback.Stop(); err != nil {
			log.Printf("[ws] session %s: stop playback on disconnect: %v", sess.ID, err)
		}
		// Unblock any in-flight speak task so cleanup cannot hang on a slow
		// collaborator.
		cancel()
		tasks.Wait()
		close(results)
		<-supervisorDone
		s.Store.Remove(sess.ID)
		_ = raw.Close(ws.StatusNormalClosure, "done")
		log.Printf("[ws] session %s disconnected (%d active)", sess.ID, s.Store.Count())
	}()

	for {
		typ, data, err := raw.Read(ctx)
		if err != nil {
			return
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}

		ev, err := protocol.Parse(data)
		if err != nil {
			s.sendParseError(ctx, c, sess.ID, err)
			continue
		}

		switch ev := ev.(type) {
		case protocol.ChatEvent:
			s.handleChat(ctx, c, sess.ID, ev)
		case protocol.SpeakEvent:
			s.Store.SetMode(sess.ID, protocol.ModeSpeaking)
			tasks.Add(1)
			go func() {
				defer tasks.Done()
				err := s.Speech.Speak(ctx, ev, c)
				// Leave the mode alone if something else (a stop, a
				// mode_change) already moved it off speaking.
				if s.Store.Mode(sess.ID) == protocol.ModeSpeaking {
					s.Store.SetMode(sess.ID, protocol.ModeIdle)
				}
				results <- taskResult{sessionID: sess.ID, err: err}
			}()
		case protocol.StopEvent:
			if err := s.Playback.Stop(); err != nil {
				log.Printf("[ws] session %s: stop: %v", sess.ID, err)
			}
			s.Store.SetMode(sess.ID, protocol.ModeIdle)
			s.send(ctx, c, sess.ID, protocol.NewStopAck())
		case protocol.ModeChangeEvent:
			s.Store.SetMode(sess.ID, ev.Mode)
			s.send(ctx, c, sess.ID, protocol.NewModeChangeAck(ev.Mode))
		case protocol.PingEvent:
			s.send(ctx, c, sess.ID, protocol.NewPong(ev.Timestamp))
		}
	}
}

func (s *Server) handleChat(ctx context.Context, c *conn, sessionID string, ev protocol.ChatEvent) {
	s.Store.SetMode(sessionID, protocol.ModeProcessing)
	reply, err := s.Chat.Completion(ctx, sessionID, ev.Text)
	s.Store.SetMode(sessionID, protocol.ModeIdle)
	if err != nil {
		log.Printf("[ws] session %s: chat: %v", sessionID, err)
		s.send(ctx, c, sessionID, protocol.NewError("Chat failed: "+err.Error()))
		return
	}
	s.send(ctx, c, sessionID, protocol.NewChatResponse(reply))
}

// sendParseError maps a Parse failure onto a client-visible error event,
// keeping malformed JSON distinguishable from schema violations.
func (s *Server) sendParseError(ctx context.Context, c *conn, sessionID string, err error) {
	var ve *protocol.ValidationError
	switch {
	case errors.Is(err, protocol.ErrMalformedJSON):
		s.send(ctx, c, sessionID, protocol.NewError("Invalid JSON format"))
	case errors.As(err, &ve):
		s.send(ctx, c, sessionID, protocol.NewError(ve.Reason))
	default:
		s.send(ctx, c, sessionID, protocol.NewError(err.Error()))
	}
}

func (s *Server) send(ctx context.Context, c *conn, sessionID string, event any) {
	if err := c.Send(ctx, event); err != nil {
		log.Printf("[ws] session %s: send: %v", sessionID, err)
	}
}
