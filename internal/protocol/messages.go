package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coopsweep/minesweeper-backend/internal/game"
)

type Player struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	UserIcon string `json:"user_icon"`
}

type OpKind string

const (
	OpReveal OpKind = "Reveal"
	OpFlag   OpKind = "Flag"
)

type Op struct {
	Kind OpKind `json:"kind"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
}

// ClientMessage is the closed set of inbound messages. Decode is the only
// constructor, so a handler switching on the concrete types covers every kind.
type ClientMessage interface{ isClientMessage() }

type InitRoom struct {
	Config game.Config
	Player Player // optional; connection identity is used when absent
}

type JoinRoom struct {
	RoomID string
	Player Player
}

type GameOp struct {
	RoomID   string
	PlayerID string // optional; when present it must match the connection's identity
	Op       Op
}

func (InitRoom) isClientMessage() {}
func (JoinRoom) isClientMessage() {}
func (GameOp) isClientMessage()   {}

// envelope holds the union of every inbound field; Decode narrows it.
type envelope struct {
	Type     string       `json:"type"`
	RoomID   string       `json:"room_id"`
	PlayerID string       `json:"player_id"`
	Player   *Player      `json:"player"`
	Config   *game.Config `json:"config"`
	Op       *Op          `json:"op"`
}

// Decode parses one inbound frame. Every failure is returned as an error value
// for the caller to surface as an InvalidRequest; it never panics and never
// obliges the caller to drop the connection.
func Decode(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch env.Type {
	case "InitRoom":
		if env.Config == nil {
			return nil, errors.New("InitRoom: missing config")
		}
		if err := env.Config.Validate(); err != nil {
			return nil, fmt.Errorf("InitRoom: %w", err)
		}
		m := InitRoom{Config: *env.Config}
		if env.Player != nil {
			m.Player = *env.Player
		}
		return m, nil

	case "JoinRoom":
		if env.RoomID == "" {
			return nil, errors.New("JoinRoom: missing room_id")
		}
		if env.Player == nil || env.Player.UserID == "" {
			return nil, errors.New("JoinRoom: missing player")
		}
		return JoinRoom{RoomID: env.RoomID, Player: *env.Player}, nil

	case "GameOp":
		if env.RoomID == "" {
			return nil, errors.New("GameOp: missing room_id")
		}
		if env.Op == nil {
			return nil, errors.New("GameOp: missing op")
		}
		switch env.Op.Kind {
		case OpReveal, OpFlag:
		default:
			return nil, fmt.Errorf("GameOp: unknown op kind %q", env.Op.Kind)
		}
		if env.Op.Row < 0 || env.Op.Col < 0 {
			return nil, errors.New("GameOp: negative coordinate")
		}
		return GameOp{RoomID: env.RoomID, PlayerID: env.PlayerID, Op: *env.Op}, nil

	case "":
		return nil, errors.New("missing type tag")
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// ServerMessage is the closed set of outbound messages. Each variant carries
// its own type tag, set by its constructor, so Encode is a plain marshal.
type ServerMessage interface{ isServerMessage() }

type RoomCreated struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type PlayerJoined struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type PlayerLeft struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type GameStart struct {
	Type    string      `json:"type"`
	Players []Player    `json:"players"`
	Config  game.Config `json:"config"`
}

// OpResult mirrors game.RevealResult plus flag toggles, as one broadcastable
// payload every recipient can apply to its local view.
type OpResult struct {
	Cells     []game.CellUpdate `json:"revealed_cells"`
	Flags     []game.FlagUpdate `json:"flags"`
	Outcome   game.Outcome      `json:"outcome"`
	Mines     []game.Point      `json:"mines,omitempty"`
	Detonated *game.Point       `json:"detonated,omitempty"`
}

type GameOpRes struct {
	Type  string   `json:"type"`
	OpRes OpResult `json:"op_res"`
}

type GameEnd struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Scores   int    `json:"scores"`
	Duration int64  `json:"duration"`
	Steps    int    `json:"steps"`
}

type InvalidRequest struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (RoomCreated) isServerMessage()    {}
func (PlayerJoined) isServerMessage()   {}
func (PlayerLeft) isServerMessage()     {}
func (GameStart) isServerMessage()      {}
func (GameOpRes) isServerMessage()      {}
func (GameEnd) isServerMessage()        {}
func (InvalidRequest) isServerMessage() {}

func NewRoomCreated(roomID string) RoomCreated {
	return RoomCreated{Type: "InitRoom", RoomID: roomID}
}

func NewPlayerJoined(p Player) PlayerJoined {
	return PlayerJoined{Type: "JoinRoom", Player: p}
}

func NewPlayerLeft(p Player) PlayerLeft {
	return PlayerLeft{Type: "PlayerLeave", Player: p}
}

func NewGameStart(players []Player, cfg game.Config) GameStart {
	return GameStart{Type: "GameStart", Players: players, Config: cfg}
}

func NewGameOpRes(res OpResult) GameOpRes {
	return GameOpRes{Type: "GameOpRes", OpRes: res}
}

func NewGameEnd(success bool, scores int, duration int64, steps int) GameEnd {
	return GameEnd{Type: "GameEnd", Success: success, Scores: scores, Duration: duration, Steps: steps}
}

func NewInvalidRequest(msg string) InvalidRequest {
	return InvalidRequest{Type: "InvalidRequest", Error: msg}
}

// Encode serializes one outbound message. Broadcast paths call this once and
// fan the bytes out to every recipient.
func Encode(m ServerMessage) ([]byte, error) {
	return json.Marshal(m)
}
