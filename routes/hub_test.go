package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetinventory/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubPublishQueuesEncodedEvent(t *testing.T) {
	h := NewHub(zap.NewNop())

	h.Publish(workflow.Event{Type: workflow.EventOrderCreated, ID: 7})

	require.Len(t, h.broadcast, 1)
	var got workflow.Event
	require.NoError(t, json.Unmarshal(<-h.broadcast, &got))
	assert.Equal(t, workflow.EventOrderCreated, got.Type)
	assert.EqualValues(t, 7, got.ID)
}

func TestHubPublishDropsWhenFull(t *testing.T) {
	h := NewHub(zap.NewNop())
	for i := 0; i < cap(h.broadcast)+5; i++ {
		h.Publish(workflow.Event{Type: workflow.EventOrderUpdated, ID: uint(i)})
	}
	assert.Len(t, h.broadcast, cap(h.broadcast))
}

func TestHubClose(t *testing.T) {
	h := NewHub(zap.NewNop())
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Close()
	h.Close()
	<-done

	assert.NotPanics(t, func() { h.Publish(workflow.Event{Type: workflow.EventOrderDeleted, ID: 1}) })
	assert.Zero(t, h.ClientCount())
}

// stalledClient registers the server side of a websocket whose peer never reads.
func stalledClient(t *testing.T, h *Hub) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	h.add(<-accepted)
}

func TestHubDropsStalledClientWithoutHoldingLock(t *testing.T) {
	h := NewHub(zap.NewNop())
	h.writeWait = 50 * time.Millisecond
	stalledClient(t, h)
	require.Equal(t, 1, h.ClientCount())

	go h.Run()
	t.Cleanup(h.Close)

	payload := strings.Repeat("x", 1<<20)
	for i := 0; i < 64; i++ {
		h.Publish(workflow.Event{Type: workflow.EventOrderUpdated, ID: uint(i), Data: payload})
	}

	// ClientCount takes the client lock; it must keep answering while Run is
	// blocked writing to the stalled peer.
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 10*time.Second, 10*time.Millisecond)
}
