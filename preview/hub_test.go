package preview

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	content "github.com/goliatone/go-content"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*content.Editor, *Hub, *httptest.Server) {
	t.Helper()
	editor, err := content.NewEditor(context.Background())
	require.NoError(t, err)
	hub := NewHub(editor)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return editor, hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSiteName(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "document", msg.Type)

	var doc struct {
		Site struct {
			Name string `json:"name"`
		} `json:"site"`
	}
	require.NoError(t, json.Unmarshal(msg.Document, &doc))
	return doc.Site.Name
}

func TestHubSendsCurrentDocumentOnConnect(t *testing.T) {
	_, _, srv := newTestServer(t)
	conn := dial(t, srv)

	assert.Equal(t, "Mycelia Farms", readSiteName(t, conn))
}

func TestHubBroadcastsChanges(t *testing.T) {
	editor, hub, srv := newTestServer(t)
	first := dial(t, srv)
	second := dial(t, srv)
	readSiteName(t, first)
	readSiteName(t, second)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	_, err := editor.Edit(context.Background(), content.SectionSite, "name", content.Root, "Spore Street")
	require.NoError(t, err)

	assert.Equal(t, "Spore Street", readSiteName(t, first))
	assert.Equal(t, "Spore Street", readSiteName(t, second))
}

func TestHubDropsClosedClients(t *testing.T) {
	_, hub, srv := newTestServer(t)
	conn := dial(t, srv)
	readSiteName(t, conn)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubDocumentEndpoint(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/document")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"productDetails"`)

	resp, err = http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHubCloseStopsBroadcasts(t *testing.T) {
	editor, hub, _ := newTestServer(t)
	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	_, err := editor.Edit(context.Background(), content.SectionSite, "tagline", content.Root, "After close")
	require.NoError(t, err)
	assert.Equal(t, 0, hub.Clients())
}
