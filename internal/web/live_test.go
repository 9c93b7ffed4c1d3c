package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialLive(t *testing.T, c *Controller, srv *httptest.Server, repo string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query("repo", repo)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	h, err := c.repos.Get(repo)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.watcher.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

// createBranch writes a loose ref the way git does, which the watcher sees.
func createBranch(t *testing.T, fx fixture, name string) {
	t.Helper()
	ref := filepath.Join(fx.dir, ".git", "refs", "heads", name)
	require.NoError(t, os.WriteFile(ref, []byte(fx.second+"\n"), 0o644))
}

func readReload(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, reloadMessage, string(msg))
}

func TestLiveReload(t *testing.T) {
	fx := newFixture(t)
	cfg := testConfig(fx.dir)
	cfg.AutoReload = true
	c := newTestController(t, cfg)

	body := get(t, c, "/").Body.String()
	require.Contains(t, body, `data-live="/ws?repo=`)

	srv := httptest.NewServer(c.Handler())
	t.Cleanup(srv.Close)
	conn := dialLive(t, c, srv, fx.dir)

	createBranch(t, fx, "feature")
	readReload(t, conn)

	// Closing the controller stops the watcher, which ends the stream.
	c.Close()
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseServiceRestart), "unexpected error %v", err)
}

func TestLiveReconnectAfterEviction(t *testing.T) {
	a, b := newFixture(t), newFixture(t)
	cfg := testConfig("")
	cfg.AutoReload = true
	cfg.RepoCacheSize = 1
	c := newTestController(t, cfg)

	srv := httptest.NewServer(c.Handler())
	t.Cleanup(srv.Close)
	first := dialLive(t, c, srv, a.dir)

	// Opening b evicts a and stops its watcher.
	_, err := c.repos.Get(b.dir)
	require.NoError(t, err)
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = first.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseServiceRestart), "unexpected error %v", err)

	// A reconnecting tab gets a fresh watcher for a.
	second := dialLive(t, c, srv, a.dir)
	createBranch(t, a, "feature")
	readReload(t, second)
}

func TestLiveDisabled(t *testing.T) {
	fx := newFixture(t)
	c := newTestController(t, testConfig(fx.dir))

	assert.NotContains(t, get(t, c, "/").Body.String(), "data-live")
	assert.Equal(t, http.StatusNotFound, get(t, c, "/ws?"+query("repo", fx.dir)).Code)
}
