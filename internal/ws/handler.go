package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coopsweep/minesweeper-backend/internal/config"
	"github.com/coopsweep/minesweeper-backend/internal/protocol"
	"github.com/coopsweep/minesweeper-backend/internal/registry"
	"github.com/coopsweep/minesweeper-backend/internal/room"
)

// Handler accepts one websocket per player. Identity rides on the query
// string; a connection with incomplete identity is rejected before upgrade
// since no room context exists to send a protocol error into.
func Handler(reg *registry.Registry, cfg config.Config, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		identity := protocol.Player{
			UserID:   r.URL.Query().Get("user_id"),
			UserName: r.URL.Query().Get("user_name"),
			UserIcon: r.URL.Query().Get("user_icon"),
		}
		if identity.UserID == "" || identity.UserName == "" || identity.UserIcon == "" {
			http.Error(w, "missing identity", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clog := log.With(zap.String("conn_id", uuid.NewString()), zap.String("user_id", identity.UserID))
		clog.Info("connection established")

		c := &client{
			conn:     conn,
			reg:      reg,
			cfg:      cfg,
			identity: identity,
			boundID:  identity.UserID,
			outbox:   make(chan []byte, 16),
			log:      clog,
		}
		c.run(r.Context())
	}
}

type client struct {
	conn     *websocket.Conn
	reg      *registry.Registry
	cfg      config.Config
	identity protocol.Player
	boundID  string // user_id the current room membership is under
	joined   *room.Room
	outbox   chan []byte
	log      *zap.Logger
}

func (c *client) run(ctx context.Context) {
	writeCtx, writeCancel := context.WithCancel(ctx)
	defer writeCancel()
	go c.writer(writeCtx)

	defer func() {
		if c.joined != nil {
			c.joined.Send(room.Leave{PlayerID: c.boundID})
		}
		c.log.Info("connection closed")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			// Malformed input answers the sender only; the connection and
			// any room it belongs to are untouched.
			c.reply(protocol.NewInvalidRequest(err.Error()))
			continue
		}

		switch m := msg.(type) {
		case protocol.InitRoom:
			c.handleInit(m)
		case protocol.JoinRoom:
			c.handleJoin(m)
		case protocol.GameOp:
			c.handleOp(m)
		}
	}
}

// writer owns all socket writes. It drains the outbox the rooms and the read
// loop feed, one frame per write with its own deadline.
func (c *client) writer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.outbox:
			wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *client) handleInit(m protocol.InitRoom) {
	player := m.Player
	if player.UserID == "" {
		player = c.identity
	}

	reply := make(chan *room.Room, 1)
	c.reg.Inbox() <- registry.Create{Config: m.Config, Reply: reply}
	rm := <-reply
	if rm == nil {
		c.reply(protocol.NewInvalidRequest("failed to create room"))
		return
	}

	// The creator alone learns the id, then joins like anyone else.
	c.reply(protocol.NewRoomCreated(rm.ID()))
	c.enter(rm, player)
}

func (c *client) handleJoin(m protocol.JoinRoom) {
	rm := c.lookup(m.RoomID)
	if rm == nil {
		c.reply(protocol.NewInvalidRequest("room not found"))
		return
	}
	c.enter(rm, m.Player)
}

func (c *client) enter(rm *room.Room, player protocol.Player) {
	if c.joined != nil && c.joined != rm {
		c.joined.Send(room.Leave{PlayerID: c.boundID})
	}
	if !rm.Send(room.Join{Player: player, Outbox: c.outbox}) {
		c.reply(protocol.NewInvalidRequest("room not found"))
		return
	}
	c.joined = rm
	c.boundID = player.UserID
}

func (c *client) handleOp(m protocol.GameOp) {
	// One connection plays as one identity; an in-band player_id must agree
	// with the membership this connection holds.
	if m.PlayerID != "" && m.PlayerID != c.boundID {
		c.reply(protocol.NewInvalidRequest("player mismatch"))
		return
	}

	op := room.Op{PlayerID: c.boundID, Op: m.Op, Outbox: c.outbox}
	if rm := c.joined; rm != nil && rm.ID() == m.RoomID {
		if rm.Send(op) {
			return
		}
		// The registry evicted the room out from under the cached handle.
		c.joined = nil
	}
	rm := c.lookup(m.RoomID)
	if rm == nil || !rm.Send(op) {
		c.reply(protocol.NewInvalidRequest("room not found"))
	}
}

func (c *client) lookup(roomID string) *room.Room {
	reply := make(chan *room.Room, 1)
	c.reg.Inbox() <- registry.Get{ID: roomID, Reply: reply}
	return <-reply
}

func (c *client) reply(m protocol.ServerMessage) {
	data, err := protocol.Encode(m)
	if err != nil {
		c.log.Error("encode reply", zap.Error(err))
		return
	}
	select {
	case c.outbox <- data:
	default:
		c.log.Warn("outbox full, dropping reply")
	}
}
