// Command smoke drives a running server end to end: health probe over REST,
// then a ping / chat / speak / stop exchange over the WebSocket channel.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	ws "nhooyr.io/websocket"
)

func main() {
	addr := flag.String("addr", "http://localhost:40000", "Server base URL")
	text := flag.String("text", "Hello, how are you today?", "Text to chat and speak")
	speak := flag.Bool("speak", false, "Also run a speak round (plays audio on the server host)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("=== Smoke Test ===\n")
	fmt.Printf("Server: %s\n\n", *addr)

	fmt.Println("[1] GET /api/health...")
	checkHealth(ctx, *addr)

	wsURL := "ws" + strings.TrimPrefix(*addr, "http") + "/ws"
	fmt.Printf("[2] Dialing %s...\n", wsURL)
	c, _, err := ws.Dial(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer c.Close(ws.StatusNormalClosure, "done")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					fmt.Printf("\n[stream] read error: %v\n", err)
				}
				return
			}
			printEvent(data)
		}
	}()

	fmt.Println("[3] Sending ping...")
	send(ctx, c, map[string]any{"type": "ping", "timestamp": float64(time.Now().UnixMilli()) / 1000})
	time.Sleep(100 * time.Millisecond)

	fmt.Printf("[4] Sending chat: %q\n", *text)
	send(ctx, c, map[string]any{"type": "chat", "text": *text})

	if *speak {
		fmt.Printf("[5] Sending speak: %q\n", *text)
		send(ctx, c, map[string]any{"type": "speak", "text": *text})
		time.Sleep(500 * time.Millisecond)
		fmt.Println("[6] Sending stop...")
		send(ctx, c, map[string]any{"type": "stop"})
	}

	fmt.Println("\n[*] Waiting for events, Ctrl+C or timeout to exit")
	<-ctx.Done()
	<-done
	os.Exit(0)
}

func checkHealth(ctx context.Context, base string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/health", nil)
	if err != nil {
		log.Fatalf("health request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	fmt.Printf("    %d %s\n", resp.StatusCode, string(body))
}

func send(ctx context.Context, c *ws.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	if err := c.Write(ctx, ws.MessageText, b); err != nil {
		log.Fatalf("write: %v", err)
	}
}

func printEvent(data []byte) {
	ts := time.Now().Format("15:04:05.000")
	var ev map[string]any
	if err := json.Unmarshal(data, &ev); err != nil {
		fmt.Printf("[%s] <- unparseable: %s\n", ts, data)
		return
	}
	switch ev["type"] {
	case "pong":
		fmt.Printf("[%s] <- pong: timestamp=%v\n", ts, ev["timestamp"])
	case "chat_response":
		fmt.Printf("[%s] <- chat_response: %q\n", ts, ev["response"])
	case "audio_analysis":
		frames := 0
		if a, ok := ev["analysis"].([]any); ok {
			frames = len(a)
		}
		fmt.Printf("[%s] <- audio_analysis: duration=%v frames=%d\n", ts, ev["duration"], frames)
	case "tts_complete":
		fmt.Printf("[%s] <- tts_complete\n", ts)
	case "error":
		fmt.Printf("[%s] <- error: %v\n", ts, ev["message"])
	default:
		fmt.Printf("[%s] <- %v: %s\n", ts, ev["type"], data)
	}
}
