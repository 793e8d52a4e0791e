package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"luna/backend/internal/health"
	"luna/backend/internal/sessions"
	"luna/backend/internal/transcribe"
)

// Chatter runs one conversational turn; the WS layer and REST share the same
// implementation so history is common to both.
type Chatter interface {
	Completion(ctx context.Context, sessionID, text string) (string, error)
}

type Handlers struct {
	store       *sessions.Store
	chat        Chatter
	transcriber transcribe.Transcriber
	targets     []health.Target
	maxUploadMB int64
}

func NewHandlers(store *sessions.Store, chat Chatter, tr transcribe.Transcriber, targets []health.Target, maxUploadMB int64) *Handlers {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handlers{store: store, chat: chat, transcriber: tr, targets: targets, maxUploadMB: maxUploadMB}
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := health.CheckAll(r.Context(), h.targets...)
	state := "healthy"
	if !status.OK {
		state = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          state,
		"service":         "luna-backend",
		"active_sessions": h.store.Count(),
		"checks":          status.Checks,
		"checked_at":      status.CheckedAt,
	})
}

func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text must not be empty", http.StatusBadRequest)
		return
	}
	// REST callers without a socket still get continuity: mint an ID on first
	// use and hand it back for subsequent turns.
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	reply, err := h.chat.Completion(r.Context(), req.SessionID, req.Text)
	if err != nil {
		log.Printf("[api] chat: %v", err)
		http.Error(w, "chat completion failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response":   reply,
		"session_id": req.SessionID,
	})
}

func (h *Handlers) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB<<20)

	file, hdr, err := r.FormFile("audio_file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("upload exceeds %d MB", h.maxUploadMB), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "missing audio_file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !transcribe.SupportedExtension(hdr.Filename) {
		http.Error(w, fmt.Sprintf("unsupported audio format %q", hdr.Filename), http.StatusBadRequest)
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), hdr.Filename, file)
	if err != nil {
		log.Printf("[api] transcribe: %v", err)
		http.Error(w, "transcription failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcription": text})
}

// HandleClearConversation drops the stored history for one session without
// touching the session itself.
func (h *Handlers) HandleClearConversation(w http.ResponseWriter, r *http.Request, id string) {
	if !h.store.ClearHistory(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "session_id": id})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}
