package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/hanz94/monopoly-tool/internal/game/realtime"
	"github.com/hanz94/monopoly-tool/internal/game/service"
	apperrors "github.com/hanz94/monopoly-tool/internal/platform/errors"
	"golang.org/x/net/websocket"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details,omitempty"`
}

type transferPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int    `json:"amount"`
}

type adjustPayload struct {
	Code   string `json:"code"`
	Amount int    `json:"amount"`
}

// NewHandler creates the game routes. A nil Realtime opener falls back to
// the live channel implementation.
func NewHandler(deps Deps) http.Handler {
	if deps.Realtime == nil {
		deps.Realtime = realtime.Open
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /games", func(w http.ResponseWriter, r *http.Request) {
		var input service.CreateGameInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, apperrors.New(apperrors.CodeInvalidRequestBody, "invalid request body"))
			return
		}
		result, err := deps.Games.CreateGame(r.Context(), input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	})

	mux.HandleFunc("GET /games/{gameID}", func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromRequest(w, r)
		if !ok {
			return
		}
		record, err := deps.Games.GetGame(r.Context(), gameID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	})

	mux.HandleFunc("GET /access/{code}", func(w http.ResponseWriter, r *http.Request) {
		info, err := deps.Games.ResolveAccess(r.Context(), r.PathValue("code"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	})

	mux.HandleFunc("POST /games/{gameID}/transfer", func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromRequest(w, r)
		if !ok {
			return
		}
		var payload transferPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, apperrors.New(apperrors.CodeInvalidRequestBody, "invalid request body"))
			return
		}
		if err := deps.Games.Transfer(r.Context(), gameID, payload.From, payload.To, payload.Amount); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /games/{gameID}/adjust", func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := gameIDFromRequest(w, r)
		if !ok {
			return
		}
		var payload adjustPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, apperrors.New(apperrors.CodeInvalidRequestBody, "invalid request body"))
			return
		}
		if err := deps.Games.Adjust(r.Context(), gameID, payload.Code, payload.Amount); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, deps)
	})

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.URL.Query().Get("code"))
		if code == "" {
			writeError(w, apperrors.New(apperrors.CodeAccessInvalidCode, "code query parameter is required"))
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func gameIDFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	gameID, err := strconv.Atoi(strings.TrimSpace(r.PathValue("gameID")))
	if err != nil {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "game id must be numeric"))
		return 0, false
	}
	return gameID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("game: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
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
	writeJSON(w, code.HTTPStatus(), errorEnvelope{Error: body})
}
