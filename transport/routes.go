package transport

import (
	"chatroom/domain"
	"chatroom/errors"
	"chatroom/runtime"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type ChatLookup interface {
	GetChat(ctx context.Context, chatID domain.ChatID) (domain.Chat, error)
	Invalidate(ctx context.Context, chatID domain.ChatID) error
}

type StatsSource interface {
	Stats() runtime.Stats
}

// NewRoutes mounts the realtime endpoint next to the small read-only API.
func NewRoutes(log *slog.Logger, ws http.Handler, chats ChatLookup, stats StatsSource) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/presence", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, stats.Stats())
	})

	r.Get("/chats/{chatID}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := chatIDParam(w, r)
		if !ok {
			return
		}
		chat, err := chats.GetChat(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, chat)
		case stderrors.Is(err, errors.ErrChatNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Warn("Chat lookup failed", "chat_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "chat lookup failed"})
		}
	})

	// Drops the cached entry after the chat changed in the store.
	r.Delete("/chats/{chatID}/cache", func(w http.ResponseWriter, r *http.Request) {
		id, ok := chatIDParam(w, r)
		if !ok {
			return
		}
		if err := chats.Invalidate(r.Context(), id); err != nil {
			log.Warn("Chat cache invalidation failed", "chat_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Handle("/ws", ws)
	return r
}

func chatIDParam(w http.ResponseWriter, r *http.Request) (domain.ChatID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid chat id"})
		return 0, false
	}
	return domain.ChatID(id), true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
