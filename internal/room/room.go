package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coopsweep/minesweeper-backend/internal/game"
	"github.com/coopsweep/minesweeper-backend/internal/protocol"
)

type Phase string

const (
	PhaseLobby      Phase = "Lobby"
	PhaseInProgress Phase = "InProgress"
	PhaseEnded      Phase = "Ended"
)

// Msg is the sealed set of messages a room's goroutine consumes. All state
// transitions for one room are serialized through its inbox.
type Msg interface{ isRoomMsg() }

// Join registers a player and the channel their connection receives broadcast
// frames on. During a game it re-attaches a member whose connection dropped.
type Join struct {
	Player protocol.Player
	Outbox chan []byte
}

// Op is one game operation from a connected player. Rejections are delivered
// on Outbox only; accepted results are broadcast to every member.
type Op struct {
	PlayerID string
	Op       protocol.Op
	Outbox   chan []byte
}

type Leave struct{ PlayerID string }

type Shutdown struct{}

// GetState reflects internal state without data races, for tests and the
// room summary endpoint.
type GetState struct {
	Reply chan View
}

func (Join) isRoomMsg()     {}
func (Op) isRoomMsg()       {}
func (Leave) isRoomMsg()    {}
func (Shutdown) isRoomMsg() {}
func (GetState) isRoomMsg() {}

type View struct {
	RoomID  string
	Phase   Phase
	Players []protocol.Player
	Steps   int
}

type member struct {
	player protocol.Player
	outbox chan []byte // nil while the player's connection is down
}

// Options carries the policy knobs a room is created with.
type Options struct {
	Capacity        int
	FirstClickSafe  bool
	EndOnDisconnect bool
	IdleGrace       time.Duration
	// EngineOpts lets tests pin the board's mine placement.
	EngineOpts []game.Option
	// OnIdle fires once the room has ended (or emptied) and the grace period
	// elapsed; the registry uses it to evict.
	OnIdle func(roomID string)
}

type Room struct {
	id      string
	cfg     game.Config
	opts    Options
	inbox   chan Msg
	members []*member
	phase   Phase
	board   *game.Board
	started time.Time
	steps   int

	idle   *time.Timer
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, id string, cfg game.Config, opts Options, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.Capacity <= 0 {
		opts.Capacity = 2
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Room{
		id:     id,
		cfg:    cfg,
		opts:   opts,
		inbox:  make(chan Msg, 64),
		phase:  PhaseLobby,
		log:    log.With(zap.String("room_id", id)),
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	return r
}

func (r *Room) ID() string        { return r.id }
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room's goroutine has stopped. Holders of a stale
// *Room can use it to notice eviction.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Send enqueues a message unless the room has shut down. A false return tells
// the caller its handle outlived the room and nothing will ever drain the
// inbox.
func (r *Room) Send(m Msg) bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Op:
				r.handleOp(msg)
			case Leave:
				r.handleLeave(msg)
			case GetState:
				msg.Reply <- r.view()
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	if r.phase == PhaseEnded {
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("room ended"))
		return
	}

	if m := r.findMember(msg.Player.UserID); m != nil {
		if r.phase == PhaseInProgress && m.outbox == nil {
			// Reconnection of a player whose transport dropped mid-game.
			m.outbox = msg.Outbox
			r.disarmIdle()
			r.broadcast(protocol.NewPlayerJoined(m.player))
			return
		}
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("already in room"))
		return
	}

	if len(r.members) >= r.opts.Capacity {
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("room full"))
		return
	}
	if r.phase != PhaseLobby {
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("game already started"))
		return
	}

	r.members = append(r.members, &member{player: msg.Player, outbox: msg.Outbox})
	r.disarmIdle()
	r.broadcast(protocol.NewPlayerJoined(msg.Player))
	r.log.Info("player joined", zap.String("user_id", msg.Player.UserID), zap.Int("players", len(r.members)))

	if len(r.members) == r.opts.Capacity {
		r.startGame()
	}
}

func (r *Room) startGame() {
	opts := append([]game.Option{game.WithFirstClickSafe(r.opts.FirstClickSafe)}, r.opts.EngineOpts...)
	r.board = game.NewBoard(r.cfg, opts...)
	r.phase = PhaseInProgress
	r.started = time.Now()
	r.broadcast(protocol.NewGameStart(r.playerList(), r.cfg))
	r.log.Info("game started", zap.Int("cols", r.cfg.Cols), zap.Int("rows", r.cfg.Rows), zap.Int("mines", r.cfg.Mines))
}

func (r *Room) handleOp(msg Op) {
	switch r.phase {
	case PhaseLobby:
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("game not started"))
		return
	case PhaseEnded:
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("room ended"))
		return
	}
	if r.findMember(msg.PlayerID) == nil {
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("not a participant"))
		return
	}
	if !r.board.InBounds(msg.Op.Row, msg.Op.Col) {
		r.sendTo(msg.Outbox, protocol.NewInvalidRequest("invalid move"))
		return
	}

	var res protocol.OpResult
	var changed bool
	switch msg.Op.Kind {
	case protocol.OpReveal:
		rr := r.board.Reveal(msg.Op.Row, msg.Op.Col)
		changed = len(rr.Cells) > 0 || rr.Outcome != game.OutcomeContinue
		res = protocol.OpResult{
			Cells:     rr.Cells,
			Outcome:   rr.Outcome,
			Mines:     rr.Mines,
			Detonated: rr.Detonated,
		}
	case protocol.OpFlag:
		var flagged bool
		flagged, changed = r.board.ToggleFlag(msg.Op.Row, msg.Op.Col)
		res = protocol.OpResult{Outcome: game.OutcomeContinue}
		if changed {
			res.Flags = []game.FlagUpdate{{Row: msg.Op.Row, Col: msg.Op.Col, Flagged: flagged}}
		}
	}

	// Ops that touched nothing (flagging a revealed cell, re-revealing) still
	// get a result frame but do not count as a step.
	if changed {
		r.steps++
	}
	r.broadcast(protocol.NewGameOpRes(res))

	if res.Outcome != game.OutcomeContinue {
		r.endGame(res.Outcome == game.OutcomeWon)
	}
}

func (r *Room) endGame(success bool) {
	r.phase = PhaseEnded
	scores := 0
	if success {
		scores = r.board.Revealed()
	}
	duration := int64(time.Since(r.started).Seconds())
	r.broadcast(protocol.NewGameEnd(success, scores, duration, r.steps))
	r.log.Info("game ended", zap.Bool("success", success), zap.Int("steps", r.steps))
	r.armIdle()
}

func (r *Room) handleLeave(msg Leave) {
	m := r.findMember(msg.PlayerID)
	if m == nil {
		return
	}

	switch r.phase {
	case PhaseLobby:
		for i, cur := range r.members {
			if cur == m {
				r.members = append(r.members[:i], r.members[i+1:]...)
				break
			}
		}
		r.broadcast(protocol.NewPlayerLeft(m.player))

	case PhaseInProgress:
		m.outbox = nil
		r.broadcast(protocol.NewPlayerLeft(m.player))
		if r.opts.EndOnDisconnect {
			r.endGame(false)
		}

	case PhaseEnded:
		m.outbox = nil
	}

	r.log.Info("player left", zap.String("user_id", msg.PlayerID))
	if !r.anyConnected() {
		r.armIdle()
	}
}

// armIdle schedules eviction after the grace period. Re-arming resets it.
func (r *Room) armIdle() {
	if r.opts.OnIdle == nil {
		return
	}
	if r.idle != nil {
		r.idle.Stop()
	}
	id := r.id
	onIdle := r.opts.OnIdle
	r.idle = time.AfterFunc(r.opts.IdleGrace, func() { onIdle(id) })
}

func (r *Room) disarmIdle() {
	if r.idle != nil {
		r.idle.Stop()
		r.idle = nil
	}
}

func (r *Room) anyConnected() bool {
	for _, m := range r.members {
		if m.outbox != nil {
			return true
		}
	}
	return false
}

func (r *Room) findMember(userID string) *member {
	for _, m := range r.members {
		if m.player.UserID == userID {
			return m
		}
	}
	return nil
}

func (r *Room) playerList() []protocol.Player {
	out := make([]protocol.Player, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.player)
	}
	return out
}

func (r *Room) view() View {
	return View{RoomID: r.id, Phase: r.phase, Players: r.playerList(), Steps: r.steps}
}

// broadcast serializes once and fans out. A member whose outbox is full is
// detached rather than blocked on; the rest still receive the frame.
func (r *Room) broadcast(m protocol.ServerMessage) {
	data, err := protocol.Encode(m)
	if err != nil {
		r.log.Error("encode broadcast", zap.Error(err))
		return
	}
	for _, mem := range r.members {
		if mem.outbox == nil {
			continue
		}
		select {
		case mem.outbox <- data:
		default:
			r.log.Warn("dropping slow member", zap.String("user_id", mem.player.UserID))
			mem.outbox = nil
		}
	}
}

// sendTo delivers a reply to a single connection. The room never closes an
// outbox; the owning connection handler does its own teardown.
func (r *Room) sendTo(outbox chan []byte, m protocol.ServerMessage) {
	if outbox == nil {
		return
	}
	data, err := protocol.Encode(m)
	if err != nil {
		r.log.Error("encode reply", zap.Error(err))
		return
	}
	select {
	case outbox <- data:
	default:
	}
}

func (r *Room) shutdown() {
	if r.idle != nil {
		r.idle.Stop()
	}
	r.cancel()
	// Answer whatever raced into the inbox ahead of the shutdown so no sender
	// waits on a reply that will never come.
	for {
		select {
		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.sendTo(msg.Outbox, protocol.NewInvalidRequest("room not found"))
			case Op:
				r.sendTo(msg.Outbox, protocol.NewInvalidRequest("room not found"))
			case GetState:
				msg.Reply <- r.view()
			}
		default:
			r.members = nil
			return
		}
	}
}
