package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luna/backend/internal/api"
	"luna/backend/internal/audio"
	"luna/backend/internal/chat"
	"luna/backend/internal/config"
	"luna/backend/internal/health"
	"luna/backend/internal/playback"
	"luna/backend/internal/sessions"
	"luna/backend/internal/speech"
	"luna/backend/internal/synth"
	"luna/backend/internal/transcribe"
	"luna/backend/internal/ws"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	player, err := audio.NewPlayer(time.Duration(cfg.Playback.StopGraceMs) * time.Millisecond)
	if err != nil {
		log.Fatalf("audio backend: %v", err)
	}

	store := sessions.NewStore()
	controller := playback.New(player)

	synthClient := synth.NewHTTPClient(cfg.Synth.URL, time.Duration(cfg.Synth.TimeoutSecs)*time.Second)
	chatClient := chat.NewClient(cfg.Chat.Host, cfg.Chat.Model, cfg.Chat.SystemPrompt,
		time.Duration(cfg.Chat.TimeoutSecs)*time.Second, store)
	transcriber := transcribe.NewHTTPClient(cfg.Transcribe.URL, 60*time.Second)

	pipeline := speech.NewPipeline(synthClient, controller, os.TempDir(),
		cfg.Analysis.ChunkDurationSecs, cfg.Analysis.EstimatedStartDelay)

	targets := []health.Target{
		{Name: "ollama", Probe: chatClient.Healthy},
		{Name: "synth", Probe: synthClient.Healthy},
	}

	h := api.NewHandlers(store, chatClient, transcriber, targets, int64(cfg.Transcribe.MaxUploadMB))
	wss := ws.NewServer(store, chatClient, pipeline, controller)

	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))
	mux.HandleFunc("/ws", wss.HandleWS)
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received; stopping server...")
		// Silence the speakers before draining HTTP
		if err := controller.Stop(); err != nil {
			log.Printf("stop playback: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
