package registry

import (
	"context"
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"

	"github.com/coopsweep/minesweeper-backend/internal/game"
	"github.com/coopsweep/minesweeper-backend/internal/room"
)

type Msg interface{ isRegistryMsg() }

// Create makes a new Lobby-phase room under a freshly generated id.
type Create struct {
	Config game.Config
	Reply  chan *room.Room
}

type Get struct {
	ID    string
	Reply chan *room.Room // nil when absent
}

type Remove struct{ ID string }

type Shutdown struct{}

func (Create) isRegistryMsg()   {}
func (Get) isRegistryMsg()      {}
func (Remove) isRegistryMsg()   {}
func (Shutdown) isRegistryMsg() {}

// Registry owns the room_id -> Room table. Creation, lookup, and eviction are
// serialized through its inbox; rooms themselves run independently.
type Registry struct {
	inbox    chan Msg
	rooms    map[string]*room.Room
	defaults room.Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, defaults room.Options, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}
	g := &Registry{
		inbox:    make(chan Msg, 64),
		rooms:    make(map[string]*room.Room),
		defaults: defaults,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go g.loop()
	return g
}

func (g *Registry) Inbox() chan<- Msg { return g.inbox }

func (g *Registry) loop() {
	for {
		select {
		case <-g.ctx.Done():
			g.shutdown()
			return

		case m := <-g.inbox:
			switch msg := m.(type) {
			case Create:
				msg.Reply <- g.create(msg.Config)

			case Get:
				msg.Reply <- g.rooms[msg.ID]

			case Remove:
				if rm := g.rooms[msg.ID]; rm != nil {
					delete(g.rooms, msg.ID)
					rm.Send(room.Shutdown{})
					g.log.Info("room evicted", zap.String("room_id", msg.ID))
				}

			case Shutdown:
				g.shutdown()
				return
			}
		}
	}
}

func (g *Registry) create(cfg game.Config) *room.Room {
	var id string
	for {
		candidate, err := generateRoomID()
		if err != nil {
			g.log.Error("generate room id", zap.Error(err))
			return nil
		}
		if g.rooms[candidate] == nil {
			id = candidate
			break
		}
		g.log.Debug("room id collision, regenerating", zap.String("room_id", candidate))
	}

	opts := g.defaults
	opts.OnIdle = func(roomID string) {
		select {
		case g.inbox <- Remove{ID: roomID}:
		case <-g.ctx.Done():
		}
	}
	rm := room.New(g.ctx, id, cfg, opts, g.log)
	g.rooms[id] = rm
	g.log.Info("room created", zap.String("room_id", id))
	return rm
}

func (g *Registry) shutdown() {
	for _, rm := range g.rooms {
		rm.Send(room.Shutdown{})
	}
	clear(g.rooms)
	g.cancel()
}

// generateRoomID returns a 5-digit identifier; the caller retries until it is
// unique among live rooms.
func generateRoomID() (string, error) {
	const digits = "0123456789"
	id := make([]byte, 5)
	for i := range id {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		id[i] = digits[n.Int64()]
	}
	return string(id), nil
}
