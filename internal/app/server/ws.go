package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hanz94/monopoly-tool/internal/game/domain"
	apperrors "github.com/hanz94/monopoly-tool/internal/platform/errors"
	"golang.org/x/net/websocket"
)

type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinedPayload struct {
	GameID     int    `json:"gameId"`
	Token      string `json:"token"`
	ServerTime string `json:"serverTime"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// handleWSConn authorizes the connection by access code, marks the
// participant online, and streams participant snapshots until the client
// disconnects. Disconnect flips presence back to offline.
func handleWSConn(conn *websocket.Conn, deps Deps) {
	defer func() {
		_ = conn.Close()
	}()

	peer := newWSPeer(json.NewEncoder(conn))
	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}

	code := ""
	if request := conn.Request(); request != nil {
		code = strings.ToUpper(strings.TrimSpace(request.URL.Query().Get("code")))
	}

	info, err := deps.Games.ResolveAccess(ctx, code)
	if err != nil {
		_ = writeWSError(peer, err)
		return
	}

	channel, err := deps.Realtime(ctx, deps.Ledger, info.GameID)
	if err != nil {
		_ = writeWSError(peer, apperrors.Wrap(apperrors.CodeStoreUnavailable, "open realtime channel", err))
		return
	}
	defer channel.Close()

	deps.Presence.Set(ctx, info.GameID, code, domain.StatusOnline)
	defer deps.Presence.Set(context.Background(), info.GameID, code, domain.StatusOffline)

	_ = peer.writeFrame(wsFrame{
		Type: "game.joined",
		Payload: mustJSON(joinedPayload{
			GameID:     info.GameID,
			Token:      info.Token,
			ServerTime: time.Now().UTC().Format(time.RFC3339),
		}),
	})

	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		decoder := json.NewDecoder(conn)
		for {
			var frame wsFrame
			if err := decoder.Decode(&frame); err != nil {
				if err != io.EOF {
					log.Printf("game: websocket read for %s: %v", code, err)
				}
				return
			}
			// Inbound frames carry no commands; mutations go over HTTP.
		}
	}()

	for {
		select {
		case <-disconnected:
			return
		case snap, ok := <-channel.Snapshots():
			if !ok {
				return
			}
			if err := peer.writeFrame(wsFrame{Type: "game.players", Payload: mustJSON(snap)}); err != nil {
				return
			}
		}
	}
}

func writeWSError(peer *wsPeer, err error) error {
	code := apperrors.CodeOf(err)
	body := errorBody{
		Code:      string(code),
		Message:   err.Error(),
		Retryable: apperrors.Retryable(err),
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && len(appErr.Metadata) > 0 {
		body.Details = appErr.Metadata
	}
	return peer.writeFrame(wsFrame{
		Type:    "game.error",
		Payload: mustJSON(errorEnvelope{Error: body}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("game: marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
