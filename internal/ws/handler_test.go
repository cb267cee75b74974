package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coopsweep/minesweeper-backend/internal/config"
	"github.com/coopsweep/minesweeper-backend/internal/game"
	"github.com/coopsweep/minesweeper-backend/internal/protocol"
	"github.com/coopsweep/minesweeper-backend/internal/registry"
	"github.com/coopsweep/minesweeper-backend/internal/room"
)

func TestHandler_RejectsIncompleteIdentity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New(ctx, room.Options{Capacity: 2, IdleGrace: time.Minute}, nil)
	h := Handler(reg, config.Load(), nil)

	cases := []struct {
		name  string
		query string
	}{
		{name: "no identity", query: ""},
		{name: "missing user_id", query: "user_name=Alice&user_icon=a.png"},
		{name: "missing user_name", query: "user_id=u1&user_icon=a.png"},
		{name: "missing user_icon", query: "user_id=u1&user_name=Alice"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws?"+tc.query, nil)
			rec := httptest.NewRecorder()
			h(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func recvReply(t *testing.T, c *client) map[string]any {
	t.Helper()
	select {
	case data := <-c.outbox:
		var f map[string]any
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(time.Second):
		t.Fatalf("no reply on outbox")
		return nil
	}
}

// A room handle held across an eviction must not swallow ops: the op is
// re-resolved through the registry and answered with an error when the room
// is gone.
func TestClient_OpOnEvictedRoomReportsNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New(ctx, room.Options{Capacity: 2, IdleGrace: time.Minute}, nil)

	reply := make(chan *room.Room, 1)
	reg.Inbox() <- registry.Create{Config: game.Config{Cols: 9, Rows: 9, Mines: 10}, Reply: reply}
	rm := <-reply
	require.NotNil(t, rm)

	c := &client{
		reg:     reg,
		outbox:  make(chan []byte, 16),
		joined:  rm,
		boundID: "u1",
		log:     zap.NewNop(),
	}

	reg.Inbox() <- registry.Remove{ID: rm.ID()}
	select {
	case <-rm.Done():
	case <-time.After(time.Second):
		t.Fatalf("removed room never shut down")
	}

	c.handleOp(protocol.GameOp{RoomID: rm.ID(), Op: protocol.Op{Kind: protocol.OpReveal}})

	f := recvReply(t, c)
	require.Equal(t, "InvalidRequest", f["type"])
	require.Equal(t, "room not found", f["error"])
	require.Nil(t, c.joined)
}

func TestClient_RejectsMismatchedPlayerID(t *testing.T) {
	c := &client{
		outbox:  make(chan []byte, 16),
		boundID: "u1",
		log:     zap.NewNop(),
	}

	c.handleOp(protocol.GameOp{RoomID: "12345", PlayerID: "u2", Op: protocol.Op{Kind: protocol.OpReveal}})

	f := recvReply(t, c)
	require.Equal(t, "InvalidRequest", f["type"])
	require.Equal(t, "player mismatch", f["error"])
}
