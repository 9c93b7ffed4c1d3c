package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	livePingInterval = 30 * time.Second
	liveWriteTimeout = 5 * time.Second
	reloadMessage    = "reload"
)

// handleLive pushes a reload message to the browser after each debounced
// change of the repository named by the repo query parameter.
func (a *Controller) handleLive(w http.ResponseWriter, r *http.Request) {
	h, err := a.repos.Get(r.URL.Query().Get("repo"))
	if err != nil {
		httpError(w, err)
		return
	}
	if h.watcher == nil {
		http.Error(w, "auto reload is disabled", http.StatusNotFound)
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		slog.Debug("websocket upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	changes, release := h.watcher.Subscribe()
	defer release()
	slog.Debug("live client connected",
		slog.String("repo", h.svc.RepoPath()),
		slog.Int("subscribers", h.watcher.Subscribers()),
	)

	// The browser never sends anything; reading surfaces the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				// The watcher was closed by cache eviction or shutdown. The
				// browser reconnects and the next lookup starts a new one.
				deadline := time.Now().Add(liveWriteTimeout)
				msg := websocket.FormatCloseMessage(websocket.CloseServiceRestart, "repository watcher stopped")
				_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
				slog.Debug("websocket write", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
